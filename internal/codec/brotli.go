package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

type brotliCodec struct {
	level int
}

func newBrotli(level int) (Codec, error) {
	if level > brotli.BestCompression {
		return nil, ErrInvalidLevel
	}
	if level == 0 {
		level = brotli.DefaultCompression
	}
	return brotliCodec{level: level}, nil
}

func (brotliCodec) Algorithm() Algorithm { return AlgorithmBrotli }

// BrotliEncoderMaxCompressedSize allows 4 bytes per 16KiB meta-block; we leave
// a wider margin.
func (brotliCodec) MaxEncodedLen(n int) int {
	return n + n>>10 + 64
}

func (c brotliCodec) Encode(dst, src []byte) (int, error) {
	fw := &fixedWriter{buf: dst}
	w := brotli.NewWriterLevel(fw, c.level)
	if _, err := w.Write(src); err != nil {
		return 0, wrapBrotli(err)
	}
	if err := w.Close(); err != nil {
		return 0, wrapBrotli(err)
	}
	return fw.n, nil
}

func (brotliCodec) Decode(dst, src []byte) (int, error) {
	r := brotli.NewReader(bytes.NewReader(src))
	n, err := io.ReadFull(r, dst)
	if err != nil {
		return 0, fmt.Errorf("%w: brotli: %v", ErrCorruptFrame, err)
	}
	// the stream must end exactly where dst does
	var extra [1]byte
	if m, _ := r.Read(extra[:]); m != 0 {
		return 0, fmt.Errorf("%w: brotli: stream longer than %d bytes", ErrCorruptFrame, len(dst))
	}
	return n, nil
}

func wrapBrotli(err error) error {
	if errors.Is(err, ErrBufferTooSmall) {
		return err
	}
	return fmt.Errorf("codec: brotli: %w", err)
}

// fixedWriter writes into a preallocated buffer and fails instead of growing.
type fixedWriter struct {
	buf []byte
	n   int
}

func (w *fixedWriter) Write(p []byte) (int, error) {
	if len(p) > len(w.buf)-w.n {
		return 0, ErrBufferTooSmall
	}
	w.n += copy(w.buf[w.n:], p)
	return len(p), nil
}
