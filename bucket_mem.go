package cuckoo

import (
	"fmt"
	"strings"
)

// BucketsMem is the in-memory storage of a cuckoo filter: one flat slice of
// 64-bit fingerprint slots, partitioned into _count_ buckets of _size_ slots.
// _slots_ holds the fingerprints, bucket i owns slots[i*size, (i+1)*size)
// _occupied_ marks the slots holding an entry. An empty slot always holds 0,
// but 0 is also a valid fingerprint, so emptiness is read from _occupied_ only.
//
// Occupied slots of a bucket always form the prefix [0, length).
type BucketsMem struct {
	slots    []uint64
	occupied *BitSetMem
	*AbstractBucket
}

// newBucketsMem allocates _count_ buckets of _size_ zeroed slots
func newBucketsMem(count, size uint64) *BucketsMem {
	bucket := &AbstractBucket{size: size, count: count}
	return &BucketsMem{
		slots:          make([]uint64, count*size),
		occupied:       newBitSetMem(uint(count * size)),
		AbstractBucket: bucket,
	}
}

func (buckets *BucketsMem) offset(index, position uint64) uint64 {
	buckets.checkPosition(index, position)
	return index*buckets.size + position
}

// getLength scans bucket _index_ and returns the number of entries in it
func (buckets *BucketsMem) getLength(index uint64) uint64 {
	start := buckets.offset(index, 0)
	return uint64(buckets.occupied.RangeCount(uint(start), uint(start+buckets.size)))
}

// isFree returns true if bucket _index_ has room for another entry
func (buckets *BucketsMem) isFree(index uint64) bool {
	return buckets.getLength(index) < buckets.size
}

// at returns the value stored at _position_ of bucket _index_
func (buckets *BucketsMem) at(index, position uint64) uint64 {
	return buckets.slots[buckets.offset(index, position)]
}

// isOccupied returns true if _position_ of bucket _index_ holds an entry
func (buckets *BucketsMem) isOccupied(index, position uint64) bool {
	return buckets.occupied.Has(uint(buckets.offset(index, position)))
}

// set writes _fingerPrint_ at _position_ of bucket _index_
func (buckets *BucketsMem) set(index, position, fingerPrint uint64) {
	offset := buckets.offset(index, position)
	buckets.slots[offset] = fingerPrint
	buckets.occupied.Insert(uint(offset))
}

// remove deletes the entry at _position_ of bucket _index_ by moving the last
// entry of the bucket into its place, and returns the removed value.
// _length_ must be the current length of the bucket.
func (buckets *BucketsMem) remove(index, position, length uint64) uint64 {
	buckets.checkLength(position, length)
	victim := buckets.offset(index, position)
	last := buckets.offset(index, length-1)
	removed := buckets.slots[victim]
	buckets.slots[victim] = buckets.slots[last]
	buckets.slots[last] = 0
	buckets.occupied.Remove(uint(last))
	return removed
}

// lookup returns the position of _fingerPrint_ in bucket _index_
func (buckets *BucketsMem) lookup(index, fingerPrint uint64) (uint64, bool) {
	start := buckets.offset(index, 0)
	for position := uint64(0); position < buckets.size; position++ {
		if buckets.slots[start+position] == fingerPrint && buckets.occupied.Has(uint(start+position)) {
			return position, true
		}
	}
	return 0, false
}

// entries returns the number of occupied slots across all buckets
func (buckets *BucketsMem) entries() uint64 {
	return uint64(buckets.occupied.BitCount())
}

// equals checks if two BucketsMem hold the same entries at the same positions
func (buckets *BucketsMem) equals(otherBuckets *BucketsMem) bool {
	if buckets.size != otherBuckets.size || buckets.count != otherBuckets.count {
		return false
	}
	for i, val := range buckets.slots {
		if otherBuckets.slots[i] != val {
			return false
		}
	}
	return buckets.occupied.Equals(otherBuckets.occupied)
}

func (buckets *BucketsMem) clone() *BucketsMem {
	slots := make([]uint64, len(buckets.slots))
	copy(slots, buckets.slots)
	bucket := &AbstractBucket{size: buckets.size, count: buckets.count}
	return &BucketsMem{slots, buckets.occupied.clone(), bucket}
}

// dump renders every bucket on its own line:
//
//	 0 | 63277aae4e47929b | 0000000000000000 |
func (buckets *BucketsMem) dump() string {
	var sb strings.Builder
	for i, val := range buckets.slots {
		if uint64(i)%buckets.size == 0 {
			fmt.Fprintf(&sb, "%2d | ", uint64(i)/buckets.size)
		}
		fmt.Fprintf(&sb, "%016x | ", val)
		if uint64(i)%buckets.size == buckets.size-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
