package cuckoo

import (
	"math"
	"math/bits"
	"math/rand"
	"sync"
	"time"
)

// fingerprints are never truncated
const fingerPrintBits = 64

// maxLoadFactor is the load factor a (2, 4) cuckoo filter reaches before
// inserts start failing
const maxLoadFactor = 0.955

// src feeds GenerateRandomString, guarded by srcMu since a rand.Source isn't
// safe for concurrent use
var (
	srcMu sync.Mutex
	src   = rand.NewSource(time.Now().UnixNano())
)

const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
const (
	letterIdxBits = 6                    // 6 bits to represent a letter index
	letterIdxMask = 1<<letterIdxBits - 1 // All 1-bits, as many as letterIdxBits
	letterIdxMax  = 63 / letterIdxBits   // # of letter indices fitting in 63 bits
)

// CalculateBucketCountExponent returns the smallest bucket count exponent
// giving room for _capacity_ entries in buckets of _bucketSize_ slots
// without going over maxLoadFactor
func CalculateBucketCountExponent(capacity, bucketSize uint64) uint8 {
	if bucketSize == 0 {
		bucketSize = 1
	}
	numBuckets := uint64(math.Ceil(float64(capacity) / maxLoadFactor / float64(bucketSize)))
	if numBuckets <= 1 {
		return 0
	}
	return uint8(bits.Len64(numBuckets - 1))
}

// CalculateFalsePositiveRate returns the expected false positive rate of a filter
// with buckets of _bucketSize_ slots and fingerprints of _fingerPrintLength_ bits
func CalculateFalsePositiveRate(bucketSize, fingerPrintLength uint64) float64 {
	return math.Pow(2, math.Log2(float64(2*bucketSize))-float64(fingerPrintLength))
}

// GenerateRandomString returns a random string of _n_ ascii letters
func GenerateRandomString(n int) string {
	b := make([]byte, n)
	srcMu.Lock()
	defer srcMu.Unlock()
	// A src.Int63() generates 63 random bits, enough for letterIdxMax characters!
	for i, cache, remain := n-1, src.Int63(), letterIdxMax; i >= 0; {
		if remain == 0 {
			cache, remain = src.Int63(), letterIdxMax
		}
		if idx := int(cache & letterIdxMask); idx < len(letterBytes) {
			b[i] = letterBytes[idx]
			i--
		}
		cache >>= letterIdxBits
		remain--
	}

	return string(b)
}
