package cuckoo

import (
	"math"
	"sync"
	"testing"
)

func TestCalculateBucketCountExponent(t *testing.T) {
	cases := []struct {
		capacity   uint64
		bucketSize uint64
		exponent   uint8
	}{
		{0, 4, 0},
		{3, 4, 0},
		{4, 4, 1},
		{12, 4, 2},
		{16, 4, 3},
		{1000, 4, 9},
		{1 << 20, 4, 19},
	}
	for _, c := range cases {
		exponent := CalculateBucketCountExponent(c.capacity, c.bucketSize)
		if exponent != c.exponent {
			t.Errorf("exponent for capacity %v and bucket size %v should be %v, instead found %v", c.capacity, c.bucketSize, c.exponent, exponent)
		}
		slots := (uint64(1) << exponent) * c.bucketSize
		if float64(c.capacity) > float64(slots)*maxLoadFactor {
			t.Errorf("%v slots can't hold %v entries", slots, c.capacity)
		}
	}
}

func TestCalculateFalsePositiveRate(t *testing.T) {
	rate := CalculateFalsePositiveRate(4, 8)
	if math.Abs(rate-0.03125) > 1e-12 {
		t.Errorf("false positive rate should be 0.03125, instead found %v", rate)
	}
}

func TestGenerateRandomString(t *testing.T) {
	s := GenerateRandomString(16)
	if len(s) != 16 {
		t.Errorf("string length should be 16, instead found %v", len(s))
	}
	if s == GenerateRandomString(16) {
		t.Error("two random strings shouldn't be equal")
	}
}

func TestGenerateRandomStringConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	keys := make([]string, 8)
	for g := range keys {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			keys[g] = GenerateRandomString(16)
		}(g)
	}
	wg.Wait()
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if len(key) != 16 {
			t.Errorf("string length should be 16, instead found %v", len(key))
		}
		if seen[key] {
			t.Errorf("key %v was generated twice", key)
		}
		seen[key] = true
	}
}
