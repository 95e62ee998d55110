// Package digest computes content digests for archive entries.
//
// Digests are a content-equality oracle for collision tracking, not a
// security boundary. The engine fully drains the stream it is given so
// that non-seekable entry bodies behave the same as seekable ones.
package digest

import (
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/minio/highwayhash"
	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes. Both supported algorithms
// produce 32-byte sums.
const Size = 32

// Supported algorithm names for New.
const (
	AlgorithmBLAKE3      = "blake3"
	AlgorithmHighwayHash = "highwayhash"

	// DefaultAlgorithm is used when no algorithm is configured.
	DefaultAlgorithm = AlgorithmBLAKE3
)

// ErrAlgorithmUnavailable indicates the requested digest algorithm is
// not supported. Returned before any I/O happens.
var ErrAlgorithmUnavailable = errors.New("digest algorithm unavailable")

// highwayKey is the fixed HighwayHash key. HighwayHash requires a
// 32-byte key; content fingerprinting has no secret, so the key is a
// readable constant (inspectable in hex dumps, like any domain tag).
var highwayKey = []byte("jdependency.entry.digest.v1\x00\x00\x00\x00\x00")

// Digest is a fixed-length content fingerprint.
type Digest [Size]byte

// String returns the lowercase hex encoding of the digest.
func (d Digest) String() string {
	return fmt.Sprintf("%x", d[:])
}

// Engine computes digests of byte streams. One engine is reused for
// every entry of a merge; it is not safe for concurrent use, matching
// the single-threaded merge model.
type Engine struct {
	algorithm string
	hasher    hash.Hash
}

// New creates an engine for the named algorithm. An empty name selects
// DefaultAlgorithm. Unknown names fail with ErrAlgorithmUnavailable.
func New(algorithm string) (*Engine, error) {
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}
	switch algorithm {
	case AlgorithmBLAKE3:
		return &Engine{algorithm: algorithm, hasher: blake3.New()}, nil
	case AlgorithmHighwayHash:
		h, err := highwayhash.New(highwayKey)
		if err != nil {
			return nil, fmt.Errorf("initializing highwayhash: %w", err)
		}
		return &Engine{algorithm: algorithm, hasher: h}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAlgorithmUnavailable, algorithm)
	}
}

// Algorithm returns the name the engine was created with.
func (e *Engine) Algorithm() string {
	return e.algorithm
}

// Sum reads r to EOF and returns the digest of everything read.
// The stream is always drained, even though the bytes are not kept;
// callers rely on the entry body being consumed afterwards.
func (e *Engine) Sum(r io.Reader) (Digest, error) {
	e.hasher.Reset()
	if _, err := io.Copy(e.hasher, r); err != nil {
		return Digest{}, fmt.Errorf("digesting content: %w", err)
	}
	var d Digest
	copy(d[:], e.hasher.Sum(nil))
	return d, nil
}

// SumBytes returns the digest of b.
func (e *Engine) SumBytes(b []byte) Digest {
	e.hasher.Reset()
	e.hasher.Write(b)
	var d Digest
	copy(d[:], e.hasher.Sum(nil))
	return d
}
