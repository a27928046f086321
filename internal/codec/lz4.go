package codec

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

type lz4Codec struct {
	level lz4.CompressionLevel
	hc    bool
}

func newLZ4(level int) (Codec, error) {
	if level > 9 {
		return nil, ErrInvalidLevel
	}
	if level == 0 {
		return lz4Codec{}, nil
	}
	// lz4.Level1 .. lz4.Level9
	return lz4Codec{level: lz4.CompressionLevel(1 << (8 + level)), hc: true}, nil
}

func (lz4Codec) Algorithm() Algorithm { return AlgorithmLZ4 }

func (lz4Codec) MaxEncodedLen(n int) int {
	if n == 0 {
		return 0
	}
	return lz4.CompressBlockBound(n)
}

func (c lz4Codec) Encode(dst, src []byte) (int, error) {
	// lz4 has no encoding for an empty block, an empty payload stands for it
	if len(src) == 0 {
		return 0, nil
	}
	if len(dst) < lz4.CompressBlockBound(len(src)) {
		return 0, ErrBufferTooSmall
	}

	var n int
	var err error
	if c.hc {
		n, err = lz4.CompressBlockHC(src, dst, c.level, nil, nil)
	} else {
		n, err = lz4.CompressBlock(src, dst, nil)
	}
	if err != nil {
		return 0, fmt.Errorf("codec: lz4: %w", err)
	}
	if n == 0 {
		return 0, ErrIncompressible
	}
	return n, nil
}

func (lz4Codec) Decode(dst, src []byte) (int, error) {
	if len(src) == 0 {
		if len(dst) != 0 {
			return 0, ErrCorruptFrame
		}
		return 0, nil
	}
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return 0, fmt.Errorf("%w: lz4: %v", ErrCorruptFrame, err)
	}
	if n != len(dst) {
		return 0, fmt.Errorf("%w: lz4: decoded %d bytes, want %d", ErrCorruptFrame, n, len(dst))
	}
	return n, nil
}
