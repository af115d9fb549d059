/*
Package hash provides the keyed hash functions used to address cuckoo filter
buckets. Both functions are SipHash-1-3 (https://github.com/dgryski/go-sip13)
with independent 128-bit keys, so that the bucket index and the fingerprint of
a key are effectively independent of each other.
*/
package hash

import (
	"github.com/dgryski/go-sip13"
)

// Keys is the 128-bit key of one SipHash instance
type Keys struct {
	K0 uint64
	K1 uint64
}

// Hasher holds the keys of the index hash and of the fingerprint hash
type Hasher struct {
	IndexKeys       Keys
	FingerPrintKeys Keys
}

// default keys, pulled from /dev/urandom
const (
	defaultIndexK0       = 0x9682ddb15b6163f4
	defaultIndexK1       = 0x11abcdd6999453cb
	defaultFingerPrintK0 = 0xc10ad4af04cf6735
	defaultFingerPrintK1 = 0x64272fa17348a795
)

// DefaultHasher returns a Hasher keyed with the default constants.
// Filters built with it agree on every fingerprint and index.
func DefaultHasher() Hasher {
	return Hasher{
		IndexKeys:       Keys{defaultIndexK0, defaultIndexK1},
		FingerPrintKeys: Keys{defaultFingerPrintK0, defaultFingerPrintK1},
	}
}

// IndexHash returns the unmasked bucket index hash of _data_
func (h Hasher) IndexHash(data []byte) uint64 {
	return sip13.Sum64(h.IndexKeys.K0, h.IndexKeys.K1, data)
}

// FingerPrint returns the fingerprint of _data_. The full 64 bits are used.
func (h Hasher) FingerPrint(data []byte) uint64 {
	return sip13.Sum64(h.FingerPrintKeys.K0, h.FingerPrintKeys.K1, data)
}

// Positions returns the fingerprint of _data_ along with its primary and
// alternate bucket index for a table addressed by _mask_
func (h Hasher) Positions(data []byte, mask uint64) (uint64, uint64, uint64) {
	fingerPrint := h.FingerPrint(data)
	primary := h.IndexHash(data) & mask
	return fingerPrint, primary, AlternateIndex(primary, fingerPrint, mask)
}

// AlternateIndex returns the other candidate bucket of _fingerPrint_ when it
// sits in bucket _index_. Applying it twice yields _index_ again.
func AlternateIndex(index, fingerPrint, mask uint64) uint64 {
	return (index ^ fingerPrint) & mask
}
