package cuckoo

import "context"

// Filter is the set of operations shared by the in-memory cuckoo filter
type Filter interface {
	Insert(data []byte) bool
	Lookup(data []byte) bool
	Remove(data []byte) bool
	Length() uint64
	LoadFactor() float64
}

// FilterRedis is the context aware counterpart of Filter, where every call may
// fail with a Redis error
type FilterRedis interface {
	Insert(ctx context.Context, data []byte) (bool, error)
	Lookup(ctx context.Context, data []byte) (bool, error)
	Remove(ctx context.Context, data []byte) (bool, error)
	Length(ctx context.Context) (uint64, error)
	LoadFactor(ctx context.Context) (float64, error)
}

var (
	_ Filter      = (*CuckooFilter)(nil)
	_ FilterRedis = (*CuckooFilterRedis)(nil)
)
