package codec

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Largest window a frame may ask the decoder for. The encoder levels used
// here stay well below it.
const ZSTD_MAX_WINDOW = 64 << 20

// The encoder is safe for concurrent EncodeAll. Decoders stream, so each
// Decode takes one from the pool.
type zstdCodec struct {
	enc  *zstd.Encoder
	decs sync.Pool
}

func newZstdDecoder() (*zstd.Decoder, error) {
	return zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(ZSTD_MAX_WINDOW))
}

func newZstd(level int) (Codec, error) {
	if level > 22 {
		return nil, ErrInvalidLevel
	}
	if level == 0 {
		level = 3
	}
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("codec: zstd encoder: %w", err)
	}
	dec, err := newZstdDecoder()
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("codec: zstd decoder: %w", err)
	}
	c := &zstdCodec{enc: enc}
	c.decs.Put(dec)
	return c, nil
}

func (*zstdCodec) Algorithm() Algorithm { return AlgorithmZstd }

// Same bound as ZSTD_COMPRESSBOUND, plus room for the frame header and checksum.
func (*zstdCodec) MaxEncodedLen(n int) int {
	bound := n + n>>8
	if n < 128<<10 {
		bound += ((128 << 10) - n) >> 11
	}
	return bound + 32
}

func (c *zstdCodec) Encode(dst, src []byte) (int, error) {
	return finish(dst, c.enc.EncodeAll(src, dst[:0]))
}

// Decode never produces more than len(dst)+1 bytes, whatever the payload
// expands to.
func (c *zstdCodec) Decode(dst, src []byte) (int, error) {
	dec, ok := c.decs.Get().(*zstd.Decoder)
	if !ok {
		var err error
		if dec, err = newZstdDecoder(); err != nil {
			return 0, fmt.Errorf("codec: zstd decoder: %w", err)
		}
	}
	defer c.decs.Put(dec)

	// Reset decodes small *bytes.Reader inputs in one go, hide Len from it.
	if err := dec.Reset(streamOnly{bytes.NewReader(src)}); err != nil {
		return 0, fmt.Errorf("%w: zstd: %v", ErrCorruptFrame, err)
	}
	n, err := io.ReadFull(dec, dst)
	if err != nil {
		return 0, fmt.Errorf("%w: zstd: %v", ErrCorruptFrame, err)
	}
	// the stream must end exactly where dst does
	var extra [1]byte
	if m, err := dec.Read(extra[:]); m != 0 || (err != nil && err != io.EOF) {
		return 0, fmt.Errorf("%w: zstd: stream longer than %d bytes", ErrCorruptFrame, len(dst))
	}
	return n, nil
}

type streamOnly struct {
	io.Reader
}
