// Package codec implements the block compressors used by the codec stage and
// the length-prefixed frame they are stored in.
//
// A Codec works on whole buffers: the caller sizes the destination from
// MaxEncodedLen when compressing, and from the frame header when decompressing.
package codec

import (
	"errors"
	"fmt"
	"strings"
)

// Algorithm names a block compressor.
type Algorithm string

const (
	AlgorithmLZ4    Algorithm = "lz4"
	AlgorithmZstd   Algorithm = "zstd"
	AlgorithmS2     Algorithm = "s2"
	AlgorithmSnappy Algorithm = "snappy"
	AlgorithmBrotli Algorithm = "brotli"
)

var (
	ErrUnsupportedAlgorithm = errors.New("codec: unsupported compression algorithm")
	ErrInvalidLevel         = errors.New("codec: invalid compression level")
	ErrBufferTooSmall       = errors.New("codec: destination buffer too small")
	ErrIncompressible       = errors.New("codec: compressor produced no output")
	ErrCorruptFrame         = errors.New("codec: corrupted compressed data")
)

type Codec interface {
	Algorithm() Algorithm

	// MaxEncodedLen is the worst case compressed size of n input bytes.
	MaxEncodedLen(n int) int

	// Encode compresses src into dst and returns the number of bytes used.
	// Fails with ErrBufferTooSmall if dst is shorter than needed.
	Encode(dst, src []byte) (int, error)

	// Decode decompresses src into dst, which must be exactly the size of the
	// original data. Output of any other length is ErrCorruptFrame.
	Decode(dst, src []byte) (int, error)
}

// Algorithms lists every supported algorithm, default first.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmLZ4, AlgorithmZstd, AlgorithmS2, AlgorithmSnappy, AlgorithmBrotli}
}

func ParseAlgorithm(s string) (Algorithm, error) {
	algo := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range Algorithms() {
		if a == algo {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
}

// New builds a codec. Level 0 selects the algorithm default; the valid range
// depends on the algorithm:
//
//	lz4:    0 (fast) or 1-9 (high compression)
//	zstd:   1-22
//	s2:     1 (fast), 2 (better), 3 (best)
//	snappy: levels not supported, must be 0
//	brotli: 1-11
func New(algo Algorithm, level int) (Codec, error) {
	if level < 0 {
		return nil, ErrInvalidLevel
	}
	switch algo {
	case AlgorithmLZ4:
		return newLZ4(level)
	case AlgorithmZstd:
		return newZstd(level)
	case AlgorithmS2:
		return newS2(level)
	case AlgorithmSnappy:
		if level != 0 {
			return nil, ErrInvalidLevel
		}
		return snappyCodec{}, nil
	case AlgorithmBrotli:
		return newBrotli(level)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algo)
	}
}

// finish copies an encoder's output into dst when the encoder had to allocate
// elsewhere, and checks it fits.
func finish(dst, out []byte) (int, error) {
	if len(out) > len(dst) {
		return 0, ErrBufferTooSmall
	}
	return copy(dst, out), nil
}
