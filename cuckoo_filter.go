/*
Package cuckoo provides a cuckoo filter: a compact probabilistic set that
answers "has this key possibly been inserted?" with no false negatives and a
bounded false positive rate, while supporting deletion.

Every key is reduced to a 64-bit SipHash-1-3 fingerprint which may live in one
of exactly two buckets. The buckets are related by xor with the fingerprint, so
either bucket can be recovered from the other when an entry has to be kicked out
to make room for a new one.

Filters do no locking. Lookup only reads the storage, so any number of
goroutines may call it at once while no writer is running. Insert,
InsertWithRollback and Remove must be serialized with every other call.
*/
package cuckoo

import (
	"fmt"
)

// CuckooFilter is the in-memory implementation of BaseCuckooFilter
// _buckets_ is the flat fingerprint storage
// _length_ represents the number of entries present in the Cuckoo Filter
type CuckooFilter struct {
	buckets *BucketsMem
	length  uint64
	*AbstractCuckooFilter
}

// NewCuckooFilter creates a new in-memory CuckooFilter
// _bucketSize_ is the number of fingerprints held by each bucket
// _bucketCountExponent_ is log2 of the number of buckets
// It panics if the shape is invalid, use NewCuckooFilterWithConfig to get an error instead.
func NewCuckooFilter(bucketSize uint64, bucketCountExponent uint8) *CuckooFilter {
	return NewCuckooFilterWithRetries(bucketSize, bucketCountExponent, DefaultRetries)
}

// NewCuckooFilterWithRetries creates new in-memory CuckooFilter with specified _retries_
// _retries_ is the number of evictions that the Cuckoo filter makes if both buckets
// obtained after hashing the input are already full
func NewCuckooFilterWithRetries(bucketSize uint64, bucketCountExponent uint8, retries uint64) *CuckooFilter {
	filter, err := NewCuckooFilterWithConfig(Config{
		BucketSize:          bucketSize,
		BucketCountExponent: bucketCountExponent,
		Retries:             retries,
	})
	if err != nil {
		panic(err)
	}
	return filter
}

// NewCuckooFilterWithCapacity creates an in-memory CuckooFilter with room for
// at least _capacity_ entries at the load factor cuckoo filters usually reach.
// Like NewCuckooFilter, it panics if the resulting shape fails Config.Validate.
func NewCuckooFilterWithCapacity(capacity, bucketSize uint64) *CuckooFilter {
	return NewCuckooFilter(bucketSize, CalculateBucketCountExponent(capacity, bucketSize))
}

// NewCuckooFilterWithConfig creates an in-memory CuckooFilter described by _config_
func NewCuckooFilterWithConfig(config Config) (*CuckooFilter, error) {
	baseFilter, err := makeAbstractCuckooFilter(config)
	if err != nil {
		return nil, err
	}
	buckets := newBucketsMem(baseFilter.BucketCount(), baseFilter.bucketSize)
	return &CuckooFilter{buckets: buckets, AbstractCuckooFilter: baseFilter}, nil
}

// Length returns the current number of entries present in the Cuckoo Filter
func (cuckooFilter *CuckooFilter) Length() uint64 {
	return cuckooFilter.length
}

// LoadFactor returns the fraction of slots currently occupied
func (cuckooFilter *CuckooFilter) LoadFactor() float64 {
	return float64(cuckooFilter.length) / float64(cuckooFilter.CellSize())
}

// Insert writes the _data_ in the Cuckoo Filter for future lookup.
// It returns false if no free slot was found within Retries() evictions. In that
// case the entries kicked around by the attempt stay where they were moved, and
// the last evicted fingerprint is dropped from the filter.
func (cuckooFilter *CuckooFilter) Insert(data []byte) bool {
	return cuckooFilter.insert(data, true)
}

// InsertWithRollback behaves like Insert but undoes every eviction when it fails,
// leaving the filter exactly as it was before the call
func (cuckooFilter *CuckooFilter) InsertWithRollback(data []byte) bool {
	return cuckooFilter.insert(data, false)
}

func (cuckooFilter *CuckooFilter) insert(data []byte, destructive bool) bool {
	fingerPrint, fIndex, sIndex := cuckooFilter.getPositions(data)
	if cuckooFilter.add(fIndex, fingerPrint) || cuckooFilter.add(sIndex, fingerPrint) {
		return true
	}

	// both buckets are full, kick entries around
	index := fIndex
	currFingerPrint := fingerPrint
	var items []entry
	for i := uint64(0); i < cuckooFilter.retries; i++ {
		length := cuckooFilter.buckets.getLength(index)
		victim := cuckooFilter.victim(length)
		last := length - 1
		if !destructive {
			items = append(items, entry{
				index:       index,
				victim:      victim,
				last:        last,
				victimValue: cuckooFilter.buckets.at(index, victim),
				lastValue:   cuckooFilter.buckets.at(index, last),
			})
		}
		prevFingerPrint := cuckooFilter.buckets.remove(index, victim, length)
		cuckooFilter.buckets.set(index, last, currFingerPrint)
		currFingerPrint = prevFingerPrint
		index = cuckooFilter.alternateIndex(index, currFingerPrint)
		if cuckooFilter.add(index, currFingerPrint) {
			return true
		}
	}
	if !destructive {
		for i := len(items) - 1; i >= 0; i-- {
			item := items[i]
			cuckooFilter.buckets.set(item.index, item.last, item.lastValue)
			cuckooFilter.buckets.set(item.index, item.victim, item.victimValue)
		}
	}
	return false
}

// add places _fingerPrint_ in the first free slot of bucket _index_
func (cuckooFilter *CuckooFilter) add(index, fingerPrint uint64) bool {
	length := cuckooFilter.buckets.getLength(index)
	if length >= cuckooFilter.bucketSize {
		return false
	}
	cuckooFilter.buckets.set(index, length, fingerPrint)
	cuckooFilter.length++
	return true
}

// Lookup returns true if the _data_ is possibly present in the Cuckoo Filter, else false
func (cuckooFilter *CuckooFilter) Lookup(data []byte) bool {
	fingerPrint, fIndex, sIndex := cuckooFilter.getPositions(data)
	_, ok := cuckooFilter.buckets.lookup(fIndex, fingerPrint)
	if ok {
		return true
	}
	_, ok = cuckooFilter.buckets.lookup(sIndex, fingerPrint)
	return ok
}

// Contains is an alias of Lookup
func (cuckooFilter *CuckooFilter) Contains(data []byte) bool {
	return cuckooFilter.Lookup(data)
}

// Remove deletes one copy of the _data_ fingerprint from the Cuckoo Filter.
// Removing data that was never inserted may remove the entry of another key
// sharing its fingerprint and bucket.
func (cuckooFilter *CuckooFilter) Remove(data []byte) bool {
	fingerPrint, fIndex, sIndex := cuckooFilter.getPositions(data)
	for _, index := range [...]uint64{fIndex, sIndex} {
		position, ok := cuckooFilter.buckets.lookup(index, fingerPrint)
		if !ok {
			continue
		}
		cuckooFilter.buckets.remove(index, position, cuckooFilter.buckets.getLength(index))
		cuckooFilter.length--
		return true
	}
	return false
}

// Equals checks if two CuckooFilter hold the same entries at the same positions
func (cuckooFilter *CuckooFilter) Equals(otherFilter *CuckooFilter) bool {
	return cuckooFilter.length == otherFilter.length &&
		cuckooFilter.hasher == otherFilter.hasher &&
		cuckooFilter.buckets.equals(otherFilter.buckets)
}

// Dump renders the backing storage, one bucket per line
func (cuckooFilter *CuckooFilter) Dump() string {
	return cuckooFilter.buckets.dump()
}

// String implements fmt.Stringer
func (cuckooFilter *CuckooFilter) String() string {
	return fmt.Sprintf("CuckooFilter { occupied entries: %d, bucket size: %d, bucket count exponent: %d, retries: %d, load factor: %.4f }",
		cuckooFilter.length, cuckooFilter.bucketSize, cuckooFilter.bucketCountExponent, cuckooFilter.retries, cuckooFilter.LoadFactor())
}

// Validate scans the whole storage and checks the invariants of the filter:
// the entry count matches the occupied slots, and every bucket is compacted
// with zeroed empty slots. It is meant for tests and debugging.
func (cuckooFilter *CuckooFilter) Validate() error {
	buckets := cuckooFilter.buckets
	if entries := buckets.entries(); entries != cuckooFilter.length {
		return fmt.Errorf("cuckoo: filter length is %d but %d slots are occupied", cuckooFilter.length, entries)
	}
	for index := uint64(0); index < buckets.Count(); index++ {
		length := buckets.getLength(index)
		if length > buckets.Size() {
			return fmt.Errorf("cuckoo: bucket %d holds %d entries, more than its size %d", index, length, buckets.Size())
		}
		for position := uint64(0); position < buckets.Size(); position++ {
			occupied := buckets.isOccupied(index, position)
			if occupied != (position < length) {
				return fmt.Errorf("cuckoo: bucket %d isn't compacted at position %d", index, position)
			}
			if !occupied && buckets.at(index, position) != 0 {
				return fmt.Errorf("cuckoo: empty slot %d of bucket %d holds %x", position, index, buckets.at(index, position))
			}
		}
	}
	return nil
}
