package cardkit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"

	"github.com/cespare/xxhash/v2"
)

// ChecksumAlgorithm represents a supported checksum algorithm
type ChecksumAlgorithm string

const (
	// ChecksumSHA256 is the SHA-256 hash algorithm (256-bit, recommended for verification)
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	// ChecksumCRC32 is the CRC32 checksum (32-bit, for integrity only)
	ChecksumCRC32 ChecksumAlgorithm = "crc32"
	// ChecksumXXHash is the xxHash algorithm (64-bit, extremely fast; the default)
	ChecksumXXHash ChecksumAlgorithm = "xxhash"
)

// newHasher creates a hash.Hash for the given algorithm.
func newHasher(algorithm ChecksumAlgorithm) (hash.Hash, error) {
	switch algorithm {
	case ChecksumSHA256:
		return sha256.New(), nil
	case ChecksumCRC32:
		return crc32.NewIEEE(), nil
	case ChecksumXXHash:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("%w: checksum algorithm %q", ErrNotSupported, algorithm)
	}
}

// Checksum calculates the checksum of a resource payload using the
// specified algorithm. Returns the hex-encoded checksum string.
// Resources are loaded whole into memory, so there is no streaming form.
func Checksum(data []byte, algorithm ChecksumAlgorithm) (string, error) {
	h, err := newHasher(algorithm)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// resourceChecksum stamps the default (xxhash) checksum onto loaded
// resources. xxhash never fails to hash.
func resourceChecksum(data []byte) string {
	sum, _ := Checksum(data, ChecksumXXHash)
	return sum
}
