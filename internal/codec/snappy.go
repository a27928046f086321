package codec

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/s2"
)

type snappyCodec struct{}

func (snappyCodec) Algorithm() Algorithm { return AlgorithmSnappy }

func (snappyCodec) MaxEncodedLen(n int) int { return snappy.MaxEncodedLen(n) }

func (snappyCodec) Encode(dst, src []byte) (int, error) {
	if len(dst) < snappy.MaxEncodedLen(len(src)) {
		return 0, ErrBufferTooSmall
	}
	return finish(dst, snappy.Encode(dst, src))
}

func (snappyCodec) Decode(dst, src []byte) (int, error) {
	n, err := snappy.DecodedLen(src)
	if err != nil {
		return 0, fmt.Errorf("%w: snappy: %v", ErrCorruptFrame, err)
	}
	if n != len(dst) {
		return 0, fmt.Errorf("%w: snappy: encoded length %d, want %d", ErrCorruptFrame, n, len(dst))
	}
	out, err := snappy.Decode(dst, src)
	if err != nil {
		return 0, fmt.Errorf("%w: snappy: %v", ErrCorruptFrame, err)
	}
	return copy(dst, out), nil
}

// s2 is the klauspost extension of snappy: faster, better ratios, and its block
// format is a superset of snappy's.
type s2Codec struct {
	level int
}

func newS2(level int) (Codec, error) {
	if level > 3 {
		return nil, ErrInvalidLevel
	}
	return s2Codec{level: level}, nil
}

func (s2Codec) Algorithm() Algorithm { return AlgorithmS2 }

func (s2Codec) MaxEncodedLen(n int) int { return s2.MaxEncodedLen(n) }

func (c s2Codec) Encode(dst, src []byte) (int, error) {
	bound := s2.MaxEncodedLen(len(src))
	if bound < 0 {
		return 0, fmt.Errorf("codec: s2: block of %d bytes too large", len(src))
	}
	if len(dst) < bound {
		return 0, ErrBufferTooSmall
	}
	switch c.level {
	case 2:
		return finish(dst, s2.EncodeBetter(dst, src))
	case 3:
		return finish(dst, s2.EncodeBest(dst, src))
	default:
		return finish(dst, s2.Encode(dst, src))
	}
}

func (s2Codec) Decode(dst, src []byte) (int, error) {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return 0, fmt.Errorf("%w: s2: %v", ErrCorruptFrame, err)
	}
	if n != len(dst) {
		return 0, fmt.Errorf("%w: s2: encoded length %d, want %d", ErrCorruptFrame, n, len(dst))
	}
	out, err := s2.Decode(dst, src)
	if err != nil {
		return 0, fmt.Errorf("%w: s2: %v", ErrCorruptFrame, err)
	}
	return copy(dst, out), nil
}
