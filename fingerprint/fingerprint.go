// Package fingerprint computes the 64 bit name hashes stored in front of every
// record. The algorithm is a format compatibility constant: readers look assets
// up by this value, so producer and reader must agree on it.
package fingerprint

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash"
	"github.com/go-faster/city"
)

// Func hashes an asset base name.
type Func func(name string) uint64

type Algorithm int

const (
	// CityHash64, the fingerprint of existing JPF readers.
	City64 Algorithm = iota
	// xxHash64.
	XXH64
)

const Default = City64

func (a Algorithm) String() string {
	switch a {
	case City64:
		return "city64"
	case XXH64:
		return "xxh64"
	default:
		return "unknown"
	}
}

func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "city", "city64", "cityhash64":
		return City64, nil
	case "xxh64", "xxhash", "xxhash64":
		return XXH64, nil
	default:
		return Default, fmt.Errorf("unknown fingerprint algorithm: %s", s)
	}
}

// UnmarshalText lets the algorithm be used as a flag or a config value.
func (a *Algorithm) UnmarshalText(text []byte) (err error) {
	*a, err = ParseAlgorithm(string(text))
	return
}

func (a Algorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Func returns the hash function for the algorithm. Unknown values fall back
// to the default algorithm.
func (a Algorithm) Func() Func {
	switch a {
	case XXH64:
		return xxh64
	default:
		return city64
	}
}

// Sum hashes name with the algorithm.
func (a Algorithm) Sum(name string) uint64 {
	return a.Func()(name)
}

func city64(name string) uint64 {
	return city.Hash64([]byte(name))
}

func xxh64(name string) uint64 {
	return xxhash.Sum64([]byte(name))
}
