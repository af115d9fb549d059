package cuckoo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// emptySlot marks a free slot in a Redis bucket list. Fingerprints are always
// stored as 16 hex digits, so a zero fingerprint can't be mistaken for it.
const emptySlot = ""

// pipelineChunk caps the number of buckets created or deleted per round trip
const pipelineChunk = 512

var removeEntryScript = redis.NewScript(`
	local key = KEYS[1]
	local position = tonumber(ARGV[1])
	local last = tonumber(ARGV[2])
	local victim = redis.call('LINDEX', key, position)
	if position ~= last then
		redis.call('LSET', key, position, redis.call('LINDEX', key, last))
	end
	redis.call('LSET', key, last, '')
	return victim
`)

// BucketsRedis is the Redis backed storage of a cuckoo filter.
// Every bucket is a Redis List of _size_ entries at "cuckoo_<key>_bucket_<index>".
// Lua scripts are used where a bucket is read and written in one step, so that
// each primitive is atomic.
type BucketsRedis struct {
	key string
	*AbstractBucket
}

// newBucketsRedis creates the handle of _count_ buckets of _size_ slots under _key_
func newBucketsRedis(key string, count, size uint64) *BucketsRedis {
	bucket := &AbstractBucket{size: size, count: count}
	return &BucketsRedis{key, bucket}
}

func (buckets *BucketsRedis) bucketKey(index uint64) string {
	return "cuckoo_" + buckets.key + "_bucket_" + strconv.FormatUint(index, 10)
}

func encodeFingerPrint(fingerPrint uint64) string {
	return fmt.Sprintf("%016x", fingerPrint)
}

func decodeFingerPrint(value string) (uint64, error) {
	fingerPrint, err := strconv.ParseUint(value, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("cuckoo: invalid fingerprint %q: %w", value, err)
	}
	return fingerPrint, nil
}

// init creates every bucket list filled with empty slots
func (buckets *BucketsRedis) init(ctx context.Context) error {
	empty := make([]interface{}, buckets.size)
	for i := range empty {
		empty[i] = emptySlot
	}
	for start := uint64(0); start < buckets.count; start += pipelineChunk {
		pipe := getRedisClient().Pipeline()
		for index := start; index < start+pipelineChunk && index < buckets.count; index++ {
			pipe.Del(ctx, buckets.bucketKey(index))
			pipe.RPush(ctx, buckets.bucketKey(index), empty...)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("cuckoo: error while creating buckets in redis: %w", err)
		}
	}
	return nil
}

// destroy deletes every bucket list
func (buckets *BucketsRedis) destroy(ctx context.Context) error {
	for start := uint64(0); start < buckets.count; start += pipelineChunk {
		var keys []string
		for index := start; index < start+pipelineChunk && index < buckets.count; index++ {
			keys = append(keys, buckets.bucketKey(index))
		}
		if err := getRedisClient().Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("cuckoo: error while deleting buckets from redis: %w", err)
		}
	}
	return nil
}

// elements returns the raw values of bucket _index_
func (buckets *BucketsRedis) elements(ctx context.Context, index uint64) ([]string, error) {
	buckets.checkPosition(index, 0)
	elements, err := getRedisClient().LRange(ctx, buckets.bucketKey(index), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cuckoo: error while fetching bucket %d from redis: %w", index, err)
	}
	return elements, nil
}

// getLength scans bucket _index_ and returns the number of entries in it
func (buckets *BucketsRedis) getLength(ctx context.Context, index uint64) (uint64, error) {
	elements, err := buckets.elements(ctx, index)
	if err != nil {
		return 0, err
	}
	length := uint64(0)
	for _, element := range elements {
		if element != emptySlot {
			length++
		}
	}
	return length, nil
}

// at returns the fingerprint stored at _position_ of bucket _index_
func (buckets *BucketsRedis) at(ctx context.Context, index, position uint64) (uint64, error) {
	buckets.checkPosition(index, position)
	value, err := getRedisClient().LIndex(ctx, buckets.bucketKey(index), int64(position)).Result()
	if err != nil {
		return 0, fmt.Errorf("cuckoo: error while fetching position %d of bucket %d: %w", position, index, err)
	}
	return decodeFingerPrint(value)
}

// set writes _fingerPrint_ at _position_ of bucket _index_
func (buckets *BucketsRedis) set(ctx context.Context, index, position, fingerPrint uint64) error {
	buckets.checkPosition(index, position)
	err := getRedisClient().LSet(ctx, buckets.bucketKey(index), int64(position), encodeFingerPrint(fingerPrint)).Err()
	if err != nil {
		return fmt.Errorf("cuckoo: error while setting position %d of bucket %d: %w", position, index, err)
	}
	return nil
}

// remove deletes the entry at _position_ of bucket _index_ by moving the last
// entry of the bucket into its place, and returns the removed fingerprint.
// _length_ must be the current length of the bucket.
func (buckets *BucketsRedis) remove(ctx context.Context, index, position, length uint64) (uint64, error) {
	buckets.checkPosition(index, position)
	buckets.checkLength(position, length)
	value, err := removeEntryScript.Run(ctx, getRedisClient(), []string{buckets.bucketKey(index)}, position, length-1).Text()
	if err != nil {
		return 0, fmt.Errorf("cuckoo: error while removing position %d of bucket %d: %w", position, index, err)
	}
	return decodeFingerPrint(value)
}

// lookup returns the position of _fingerPrint_ in bucket _index_
func (buckets *BucketsRedis) lookup(ctx context.Context, index, fingerPrint uint64) (uint64, bool, error) {
	buckets.checkPosition(index, 0)
	pos, err := getRedisClient().LPos(ctx, buckets.bucketKey(index), encodeFingerPrint(fingerPrint), redis.LPosArgs{Rank: 1}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("cuckoo: error while searching bucket %d: %w", index, err)
	}
	return uint64(pos), true, nil
}
