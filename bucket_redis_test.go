package cuckoo

import (
	"context"
	"testing"
)

func newTestBucketsRedis(t *testing.T, count, size uint64) *BucketsRedis {
	t.Helper()
	initMockRedis()
	buckets := newBucketsRedis("test", count, size)
	if err := buckets.init(context.Background()); err != nil {
		t.Fatalf("buckets should be created, instead found error %v", err)
	}
	return buckets
}

func TestBasicBucketRedis(t *testing.T) {
	ctx := context.Background()
	buckets := newTestBucketsRedis(t, 4, 3)
	buckets.set(ctx, 2, 0, 0xaa)
	buckets.set(ctx, 2, 1, 0xbb)
	e, err := buckets.at(ctx, 2, 1)
	if err != nil || e != 0xbb {
		t.Errorf("e should be %v, instead found %v, %v", 0xbb, e, err)
	}
	length, _ := buckets.getLength(ctx, 2)
	if length != 2 {
		t.Errorf("bucket length should be 2, instead found %v", length)
	}
	elements, _ := buckets.elements(ctx, 2)
	if elements[0] != "00000000000000aa" || elements[2] != emptySlot {
		t.Errorf("bucket elements should be hex encoded, instead found %q", elements)
	}
	position, ok, err := buckets.lookup(ctx, 2, 0xbb)
	if err != nil || !ok || position != 1 {
		t.Errorf("0xbb should be found at position 1, instead found %v, %v, %v", position, ok, err)
	}
	_, ok, _ = buckets.lookup(ctx, 1, 0xbb)
	if ok {
		t.Error("0xbb shouldn't be found in bucket 1")
	}
}

func TestBucketRedisRemoveCompacts(t *testing.T) {
	ctx := context.Background()
	buckets := newTestBucketsRedis(t, 1, 4)
	for position, value := range []uint64{0x1, 0x2, 0x3} {
		buckets.set(ctx, 0, uint64(position), value)
	}
	removed, err := buckets.remove(ctx, 0, 0, 3)
	if err != nil || removed != 0x1 {
		t.Errorf("removed value should be 0x1, instead found %v, %v", removed, err)
	}
	elements, _ := buckets.elements(ctx, 0)
	want := []string{"0000000000000003", "0000000000000002", emptySlot, emptySlot}
	for i := range want {
		if elements[i] != want[i] {
			t.Errorf("position %v should be %q, instead found %q", i, want[i], elements[i])
		}
	}
}

func TestBucketRedisDestroy(t *testing.T) {
	ctx := context.Background()
	buckets := newTestBucketsRedis(t, 3, 2)
	if err := buckets.destroy(ctx); err != nil {
		t.Fatal(err)
	}
	n, _ := getRedisClient().Exists(ctx, buckets.bucketKey(0), buckets.bucketKey(1), buckets.bucketKey(2)).Result()
	if n != 0 {
		t.Errorf("no bucket key should exist after destroy, instead found %v", n)
	}
}

func TestBucketRedisOutOfRange(t *testing.T) {
	buckets := newTestBucketsRedis(t, 2, 2)
	defer func() {
		if recover() == nil {
			t.Error("set outside the bucket should panic")
		}
	}()
	buckets.set(context.Background(), 2, 0, 1)
}

func TestDecodeFingerPrint(t *testing.T) {
	if _, err := decodeFingerPrint("zz"); err == nil {
		t.Error("decoding zz should fail")
	}
	v, err := decodeFingerPrint(encodeFingerPrint(0))
	if err != nil || v != 0 {
		t.Errorf("zero fingerprint should round trip, instead found %v, %v", v, err)
	}
}
