package cuckoo

import (
	"github.com/bits-and-blooms/bitset"
)

// BitSetMem marks which slots of the bucket storage hold an entry.
// _size_ is the number of bits in the bitset
// _set_ is the bitset implementation adopted from https://github.com/bits-and-blooms/bitset
type BitSetMem struct {
	set  *bitset.BitSet
	size uint
}

// newBitSetMem creates a new BitSetMem of size _size_
func newBitSetMem(size uint) *BitSetMem {
	return &BitSetMem{bitset.New(size), size}
}

// Size returns the size of the bitset
func (bitSet *BitSetMem) Size() uint {
	return bitSet.size
}

// Has checks if the bit at index _index_ is set
func (bitSet *BitSetMem) Has(index uint) bool {
	return bitSet.set.Test(index)
}

// Insert sets the bit at index specified by _index_
func (bitSet *BitSetMem) Insert(index uint) {
	bitSet.set.Set(index)
}

// Remove clears the bit at index specified by _index_
func (bitSet *BitSetMem) Remove(index uint) {
	bitSet.set.Clear(index)
}

// BitCount returns the total number of set bits in the bitset
func (bitSet *BitSetMem) BitCount() uint {
	return bitSet.set.Count()
}

// RangeCount returns the number of set bits in [start, end)
func (bitSet *BitSetMem) RangeCount(start, end uint) uint {
	count := uint(0)
	for i, ok := bitSet.set.NextSet(start); ok && i < end; i, ok = bitSet.set.NextSet(i + 1) {
		count++
	}
	return count
}

// Equals checks if two bitsets are equal
func (bitSet *BitSetMem) Equals(otherBitSet *BitSetMem) bool {
	return bitSet.size == otherBitSet.size && bitSet.set.Equal(otherBitSet.set)
}

func (bitSet *BitSetMem) clone() *BitSetMem {
	return &BitSetMem{bitSet.set.Clone(), bitSet.size}
}
