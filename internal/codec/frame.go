package codec

import (
	c "asyncfs/internal"
	"fmt"
)

// A frame is the on-disk form of a compressed payload:
//
//	[8 bytes: original size, little endian u64][compressed payload]
//
// The payload length is whatever remains of the buffer. The algorithm is not
// recorded; readers must use the codec the writer used.
const FrameHeaderLen = c.FRAME_HEADER_LEN

// MaxFrameLen is the size of the buffer needed to frame n bytes with codec cd.
func MaxFrameLen(cd Codec, n int) int {
	return FrameHeaderLen + cd.MaxEncodedLen(n)
}

func PutFrameHeader(frame []byte, originalSize uint64) {
	c.Bin.PutUint64(frame[:FrameHeaderLen], originalSize)
}

// ParseFrame splits a frame into the original size and the compressed payload.
func ParseFrame(frame []byte) (uint64, []byte, error) {
	if len(frame) < FrameHeaderLen {
		return 0, nil, fmt.Errorf("%w: frame of %d bytes has no header", ErrCorruptFrame, len(frame))
	}
	return c.Bin.Uint64(frame[:FrameHeaderLen]), frame[FrameHeaderLen:], nil
}

// EncodeFrameInto compresses src into frame, which must be at least
// MaxFrameLen(cd, len(src)) long. Returns the used length of frame.
func EncodeFrameInto(cd Codec, frame, src []byte) (int, error) {
	if len(frame) < FrameHeaderLen {
		return 0, ErrBufferTooSmall
	}
	n, err := cd.Encode(frame[FrameHeaderLen:], src)
	if err != nil {
		return 0, err
	}
	PutFrameHeader(frame, uint64(len(src)))
	return FrameHeaderLen + n, nil
}

// EncodeFrame allocates and returns the frame for src.
func EncodeFrame(cd Codec, src []byte) ([]byte, error) {
	frame := make([]byte, MaxFrameLen(cd, len(src)))
	n, err := EncodeFrameInto(cd, frame, src)
	if err != nil {
		return nil, err
	}
	return frame[:n], nil
}

// DecodeFrame allocates and returns the original data of a frame. Frames
// claiming more than maxSize bytes are rejected before allocating.
func DecodeFrame(cd Codec, frame []byte, maxSize uint64) ([]byte, error) {
	size, payload, err := ParseFrame(frame)
	if err != nil {
		return nil, err
	}
	if size > maxSize {
		return nil, fmt.Errorf("%w: frame claims %d bytes, limit %d", ErrCorruptFrame, size, maxSize)
	}
	out := make([]byte, size)
	if _, err := cd.Decode(out, payload); err != nil {
		return nil, err
	}
	return out, nil
}
