package cuckoo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kwertop/cuckoo/hash"
)

// CuckooFilterRedis is the Redis backed implementation of BaseCuckooFilter.
// It runs the same addressing and eviction as CuckooFilter, with the buckets
// held in Redis Lists so that several processes can work on one filter.
// Like CuckooFilter, it does no locking of its own.
// _buckets_ is the Redis bucket storage
// _key_ is the random name shared by every bucket list of the filter
// _metadataKey_ is the Redis hash holding the shape and length of the filter,
// used to attach to an existing filter with NewCuckooFilterRedisFromKey
type CuckooFilterRedis struct {
	buckets     *BucketsRedis
	key         string
	metadataKey string
	*AbstractCuckooFilter
}

// NewCuckooFilterRedis creates a new CuckooFilterRedis
// _bucketSize_ is the number of fingerprints held by each bucket
// _bucketCountExponent_ is log2 of the number of buckets
func NewCuckooFilterRedis(ctx context.Context, bucketSize uint64, bucketCountExponent uint8) (*CuckooFilterRedis, error) {
	return NewCuckooFilterRedisWithConfig(ctx, Config{
		BucketSize:          bucketSize,
		BucketCountExponent: bucketCountExponent,
	})
}

// NewCuckooFilterRedisWithConfig creates a new CuckooFilterRedis described by _config_
func NewCuckooFilterRedisWithConfig(ctx context.Context, config Config) (*CuckooFilterRedis, error) {
	baseFilter, err := makeAbstractCuckooFilter(config)
	if err != nil {
		return nil, err
	}
	filterKey := GenerateRandomString(16)
	filter := &CuckooFilterRedis{
		buckets:              newBucketsRedis(filterKey, baseFilter.BucketCount(), baseFilter.bucketSize),
		key:                  filterKey,
		metadataKey:          "cuckoo_" + filterKey + "_metadata",
		AbstractCuckooFilter: baseFilter,
	}
	if err := filter.buckets.init(ctx); err != nil {
		return nil, fmt.Errorf("cuckoo: error while creating cuckoo filter redis: %w", err)
	}
	if err := filter.setMetadata(ctx); err != nil {
		return nil, fmt.Errorf("cuckoo: error while creating cuckoo filter redis: %w", err)
	}
	return filter, nil
}

// NewCuckooFilterRedisFromKey attaches to the filter whose metadata is stored
// at _metadataKey_
func NewCuckooFilterRedisFromKey(ctx context.Context, metadataKey string) (*CuckooFilterRedis, error) {
	values, err := getRedisClient().HGetAll(ctx, metadataKey).Result()
	if err != nil {
		return nil, fmt.Errorf("cuckoo: error while fetching filter metadata from redis: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("cuckoo: no filter metadata at key %s", metadataKey)
	}
	fields := []string{"bucketSize", "bucketCountExponent", "retries", "indexK0", "indexK1", "fingerPrintK0", "fingerPrintK1"}
	parsed := make(map[string]uint64, len(fields))
	for _, field := range fields {
		v, err := strconv.ParseUint(values[field], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("cuckoo: invalid metadata field %s: %w", field, err)
		}
		parsed[field] = v
	}
	hasher := hash.Hasher{
		IndexKeys:       hash.Keys{K0: parsed["indexK0"], K1: parsed["indexK1"]},
		FingerPrintKeys: hash.Keys{K0: parsed["fingerPrintK0"], K1: parsed["fingerPrintK1"]},
	}
	baseFilter, err := makeAbstractCuckooFilter(Config{
		BucketSize:          parsed["bucketSize"],
		BucketCountExponent: uint8(parsed["bucketCountExponent"]),
		Retries:             parsed["retries"],
		Hasher:              &hasher,
	})
	if err != nil {
		return nil, err
	}
	filterKey := values["key"]
	return &CuckooFilterRedis{
		buckets:              newBucketsRedis(filterKey, baseFilter.BucketCount(), baseFilter.bucketSize),
		key:                  filterKey,
		metadataKey:          metadataKey,
		AbstractCuckooFilter: baseFilter,
	}, nil
}

func (cuckooFilter *CuckooFilterRedis) setMetadata(ctx context.Context) error {
	hex := func(v uint64) string { return strconv.FormatUint(v, 16) }
	return getRedisClient().HSet(ctx, cuckooFilter.metadataKey,
		"key", cuckooFilter.key,
		"bucketSize", hex(cuckooFilter.bucketSize),
		"bucketCountExponent", hex(uint64(cuckooFilter.bucketCountExponent)),
		"retries", hex(cuckooFilter.retries),
		"indexK0", hex(cuckooFilter.hasher.IndexKeys.K0),
		"indexK1", hex(cuckooFilter.hasher.IndexKeys.K1),
		"fingerPrintK0", hex(cuckooFilter.hasher.FingerPrintKeys.K0),
		"fingerPrintK1", hex(cuckooFilter.hasher.FingerPrintKeys.K1),
		"length", 0,
	).Err()
}

// Key returns the name shared by the bucket lists of the filter
func (cuckooFilter *CuckooFilterRedis) Key() string {
	return cuckooFilter.key
}

// MetadataKey returns _metadataKey_
func (cuckooFilter *CuckooFilterRedis) MetadataKey() string {
	return cuckooFilter.metadataKey
}

// Length returns the number of entries present in the filter. It is tracked in
// the metadata hash and modified using HINCRBY.
func (cuckooFilter *CuckooFilterRedis) Length(ctx context.Context) (uint64, error) {
	value, err := getRedisClient().HGet(ctx, cuckooFilter.metadataKey, "length").Uint64()
	if err != nil {
		return 0, fmt.Errorf("cuckoo: error while fetching filter length: %w", err)
	}
	return value, nil
}

func (cuckooFilter *CuckooFilterRedis) incrLength(ctx context.Context, delta int64) error {
	err := getRedisClient().HIncrBy(ctx, cuckooFilter.metadataKey, "length", delta).Err()
	if err != nil {
		return fmt.Errorf("cuckoo: error while updating filter length: %w", err)
	}
	return nil
}

// LoadFactor returns the fraction of slots currently occupied
func (cuckooFilter *CuckooFilterRedis) LoadFactor(ctx context.Context) (float64, error) {
	length, err := cuckooFilter.Length(ctx)
	if err != nil {
		return 0, err
	}
	return float64(length) / float64(cuckooFilter.CellSize()), nil
}

// Insert writes the _data_ in the filter. It returns false, with a nil error,
// if no free slot was found within Retries() evictions; the entries moved by
// the attempt stay where they are.
func (cuckooFilter *CuckooFilterRedis) Insert(ctx context.Context, data []byte) (bool, error) {
	return cuckooFilter.insert(ctx, data, true)
}

// InsertWithRollback behaves like Insert but undoes every eviction when it fails
func (cuckooFilter *CuckooFilterRedis) InsertWithRollback(ctx context.Context, data []byte) (bool, error) {
	return cuckooFilter.insert(ctx, data, false)
}

func (cuckooFilter *CuckooFilterRedis) insert(ctx context.Context, data []byte, destructive bool) (bool, error) {
	fingerPrint, fIndex, sIndex := cuckooFilter.getPositions(data)
	for _, index := range [...]uint64{fIndex, sIndex} {
		ok, err := cuckooFilter.add(ctx, index, fingerPrint)
		if err != nil || ok {
			return ok, err
		}
	}

	index := fIndex
	currFingerPrint := fingerPrint
	var items []entry
	for i := uint64(0); i < cuckooFilter.retries; i++ {
		length, err := cuckooFilter.buckets.getLength(ctx, index)
		if err != nil {
			return false, err
		}
		victim := cuckooFilter.victim(length)
		last := length - 1
		if !destructive {
			item := entry{index: index, victim: victim, last: last}
			if item.victimValue, err = cuckooFilter.buckets.at(ctx, index, victim); err != nil {
				return false, err
			}
			if item.lastValue, err = cuckooFilter.buckets.at(ctx, index, last); err != nil {
				return false, err
			}
			items = append(items, item)
		}
		prevFingerPrint, err := cuckooFilter.buckets.remove(ctx, index, victim, length)
		if err != nil {
			return false, err
		}
		if err := cuckooFilter.buckets.set(ctx, index, last, currFingerPrint); err != nil {
			return false, err
		}
		currFingerPrint = prevFingerPrint
		index = cuckooFilter.alternateIndex(index, currFingerPrint)
		ok, err := cuckooFilter.add(ctx, index, currFingerPrint)
		if err != nil || ok {
			return ok, err
		}
	}
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if err := cuckooFilter.buckets.set(ctx, item.index, item.last, item.lastValue); err != nil {
			return false, err
		}
		if err := cuckooFilter.buckets.set(ctx, item.index, item.victim, item.victimValue); err != nil {
			return false, err
		}
	}
	return false, nil
}

// add places _fingerPrint_ in the first free slot of bucket _index_
func (cuckooFilter *CuckooFilterRedis) add(ctx context.Context, index, fingerPrint uint64) (bool, error) {
	length, err := cuckooFilter.buckets.getLength(ctx, index)
	if err != nil {
		return false, err
	}
	if length >= cuckooFilter.bucketSize {
		return false, nil
	}
	if err := cuckooFilter.buckets.set(ctx, index, length, fingerPrint); err != nil {
		return false, err
	}
	return true, cuckooFilter.incrLength(ctx, 1)
}

// Lookup returns true if the _data_ is possibly present in the filter, else false
func (cuckooFilter *CuckooFilterRedis) Lookup(ctx context.Context, data []byte) (bool, error) {
	fingerPrint, fIndex, sIndex := cuckooFilter.getPositions(data)
	for _, index := range [...]uint64{fIndex, sIndex} {
		_, ok, err := cuckooFilter.buckets.lookup(ctx, index, fingerPrint)
		if err != nil {
			return false, fmt.Errorf("cuckoo: error while lookup of data: %w", err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Remove deletes one copy of the _data_ fingerprint from the filter
func (cuckooFilter *CuckooFilterRedis) Remove(ctx context.Context, data []byte) (bool, error) {
	fingerPrint, fIndex, sIndex := cuckooFilter.getPositions(data)
	for _, index := range [...]uint64{fIndex, sIndex} {
		position, ok, err := cuckooFilter.buckets.lookup(ctx, index, fingerPrint)
		if err != nil {
			return false, fmt.Errorf("cuckoo: error while removing the data: %w", err)
		}
		if !ok {
			continue
		}
		length, err := cuckooFilter.buckets.getLength(ctx, index)
		if err != nil {
			return false, err
		}
		if _, err := cuckooFilter.buckets.remove(ctx, index, position, length); err != nil {
			return false, err
		}
		return true, cuckooFilter.incrLength(ctx, -1)
	}
	return false, nil
}

// Destroy deletes every Redis key of the filter
func (cuckooFilter *CuckooFilterRedis) Destroy(ctx context.Context) error {
	if err := cuckooFilter.buckets.destroy(ctx); err != nil {
		return err
	}
	return getRedisClient().Del(ctx, cuckooFilter.metadataKey).Err()
}
