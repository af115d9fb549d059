package cuckoo

import "fmt"

// BaseBucket describes the fixed shape of a bucket storage
type BaseBucket interface {
	Size() uint64
	Count() uint64
}

// AbstractBucket holds the shape shared by the in-memory and Redis storages.
// _size_ is the number of slots per bucket
// _count_ is the number of buckets
type AbstractBucket struct {
	size  uint64
	count uint64
}

// Size returns the number of slots in every bucket
func (bucket *AbstractBucket) Size() uint64 {
	return bucket.size
}

// Count returns the number of buckets
func (bucket *AbstractBucket) Count() uint64 {
	return bucket.count
}

// checkPosition panics if _position_ of bucket _index_ is outside the storage.
// Callers only reach this with a broken invariant, so there is nothing to recover.
func (bucket *AbstractBucket) checkPosition(index, position uint64) {
	if position >= bucket.size {
		panic(fmt.Sprintf("cuckoo: entry position %d is out of range (bucket size is %d)", position, bucket.size))
	}
	if index >= bucket.count {
		panic(fmt.Sprintf("cuckoo: bucket index %d is out of range (bucket count is %d)", index, bucket.count))
	}
}

// checkLength panics if _length_ can't be the length of a non-empty bucket
// holding _position_
func (bucket *AbstractBucket) checkLength(position, length uint64) {
	if length == 0 || length > bucket.size || position >= length {
		panic(fmt.Sprintf("cuckoo: invalid bucket length %d for entry position %d (bucket size is %d)", length, position, bucket.size))
	}
}
