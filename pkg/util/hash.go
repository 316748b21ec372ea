package util

import "github.com/cespare/xxhash/v2"

// ContentHash returns a fast non-cryptographic fingerprint of file content.
//
// Used to detect whether a file actually changed between scans so cached
// analysis results can be reused.
func ContentHash(content []byte) uint64 {
	return xxhash.Sum64(content)
}
