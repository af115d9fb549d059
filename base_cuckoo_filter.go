package cuckoo

import (
	"errors"
	"fmt"
	"math/bits"
	"math/rand"
	"time"

	"github.com/kwertop/cuckoo/hash"
)

// DefaultRetries bounds the eviction chain of an insert
const DefaultRetries = 500

// maxBucketCountExponent guards the allocation of the bucket storage
const maxBucketCountExponent = 40

// maxCellSize bounds the total number of slots, BucketSize << BucketCountExponent
const maxCellSize = 1 << 36

// ErrInvalidConfig is returned when a Config can't describe a filter
var ErrInvalidConfig = errors.New("cuckoo: invalid filter config")

// Config describes the shape of a cuckoo filter.
// _BucketSize_ is the number of fingerprints held by each bucket
// _BucketCountExponent_ is log2 of the number of buckets
// _Retries_ is the maximum number of evictions an insert makes once both
// candidate buckets are full. Zero means DefaultRetries.
// _Hasher_ holds the SipHash keys. Nil means hash.DefaultHasher().
// _Source_ drives the choice of eviction victims. Nil means a time seeded source.
type Config struct {
	BucketSize          uint64
	BucketCountExponent uint8
	Retries             uint64
	Hasher              *hash.Hasher
	Source              rand.Source
}

// Validate returns an error wrapping ErrInvalidConfig if the config is unusable
func (config Config) Validate() error {
	if config.BucketSize == 0 {
		return fmt.Errorf("%w: bucket size must be at least 1", ErrInvalidConfig)
	}
	if config.BucketCountExponent > maxBucketCountExponent {
		return fmt.Errorf("%w: bucket count exponent %d is higher than %d", ErrInvalidConfig, config.BucketCountExponent, maxBucketCountExponent)
	}
	hi, cellSize := bits.Mul64(config.BucketSize, uint64(1)<<config.BucketCountExponent)
	if hi != 0 || cellSize > maxCellSize {
		return fmt.Errorf("%w: bucket size %d with bucket count exponent %d exceeds %d slots", ErrInvalidConfig, config.BucketSize, config.BucketCountExponent, uint64(maxCellSize))
	}
	return nil
}

// BaseCuckooFilter is the shape shared by CuckooFilter and CuckooFilterRedis
type BaseCuckooFilter interface {
	BucketSize() uint64
	BucketCount() uint64
	BucketCountExponent() uint8
	CellSize() uint64
	Retries() uint64
	CuckooPositiveRate() float64
}

// AbstractCuckooFilter holds the addressing state of a cuckoo filter.
// _indexMask_ is BucketCount() - 1, bucket indices are masked instead of reduced modulo
type AbstractCuckooFilter struct {
	bucketSize          uint64
	bucketCountExponent uint8
	indexMask           uint64
	retries             uint64
	hasher              hash.Hasher
	rand                *rand.Rand
}

// entry records one eviction step so that a failed insert can be undone.
// _victim_ and _last_ are the two positions of bucket _index_ touched by the step
type entry struct {
	index       uint64
	victim      uint64
	last        uint64
	victimValue uint64
	lastValue   uint64
}

func makeAbstractCuckooFilter(config Config) (*AbstractCuckooFilter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	baseFilter := &AbstractCuckooFilter{}
	baseFilter.bucketSize = config.BucketSize
	baseFilter.bucketCountExponent = config.BucketCountExponent
	baseFilter.indexMask = uint64(1)<<config.BucketCountExponent - 1
	baseFilter.retries = config.Retries
	if baseFilter.retries == 0 {
		baseFilter.retries = DefaultRetries
	}
	if config.Hasher != nil {
		baseFilter.hasher = *config.Hasher
	} else {
		baseFilter.hasher = hash.DefaultHasher()
	}
	source := config.Source
	if source == nil {
		source = rand.NewSource(time.Now().UnixNano())
	}
	baseFilter.rand = rand.New(source)
	return baseFilter, nil
}

// BucketSize returns the number of slots in every bucket
func (cuckooFilter *AbstractCuckooFilter) BucketSize() uint64 {
	return cuckooFilter.bucketSize
}

// BucketCount returns the number of buckets, 2^BucketCountExponent()
func (cuckooFilter *AbstractCuckooFilter) BucketCount() uint64 {
	return cuckooFilter.indexMask + 1
}

// BucketCountExponent returns log2 of the number of buckets
func (cuckooFilter *AbstractCuckooFilter) BucketCountExponent() uint8 {
	return cuckooFilter.bucketCountExponent
}

// CellSize returns the overall number of slots - BucketCount() * BucketSize()
func (cuckooFilter *AbstractCuckooFilter) CellSize() uint64 {
	return cuckooFilter.BucketCount() * cuckooFilter.bucketSize
}

// Retries returns the maximum number of evictions made by a single insert
func (cuckooFilter *AbstractCuckooFilter) Retries() uint64 {
	return cuckooFilter.retries
}

// Hasher returns the keys used to address the filter
func (cuckooFilter *AbstractCuckooFilter) Hasher() hash.Hasher {
	return cuckooFilter.hasher
}

// CuckooPositiveRate returns the upper bound of the false positive rate of the filter
func (cuckooFilter *AbstractCuckooFilter) CuckooPositiveRate() float64 {
	return CalculateFalsePositiveRate(cuckooFilter.bucketSize, fingerPrintBits)
}

// getPositions returns the fingerprint, primary and alternate bucket of _data_
func (cuckooFilter *AbstractCuckooFilter) getPositions(data []byte) (uint64, uint64, uint64) {
	return cuckooFilter.hasher.Positions(data, cuckooFilter.indexMask)
}

func (cuckooFilter *AbstractCuckooFilter) alternateIndex(index, fingerPrint uint64) uint64 {
	return hash.AlternateIndex(index, fingerPrint, cuckooFilter.indexMask)
}

// victim picks a uniformly random position among the _length_ entries of a bucket
func (cuckooFilter *AbstractCuckooFilter) victim(length uint64) uint64 {
	return uint64(cuckooFilter.rand.Int63n(int64(length)))
}
