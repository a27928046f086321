package codec_test

import (
	"asyncfs/internal/codec"
	"bytes"
	"encoding/binary"
	"math/rand/v2"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randBytes(n int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, 0x5eed))
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(r.Uint32())
	}
	return buf
}

func payloads() map[string][]byte {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 2000)
	return map[string][]byte{
		"empty":      {},
		"one byte":   {0x42},
		"short text": []byte("hello, compressed world"),
		"zeros 10k":  make([]byte, 10000),
		"text":       []byte(text),
		"random 64k": randBytes(64<<10, 1),
		"random 1m":  randBytes(1<<20, 2),
	}
}

func Test_Codec_RoundTrip_All_Algorithms(t *testing.T) {
	for _, algo := range codec.Algorithms() {
		cd, err := codec.New(algo, 0)
		require.NoError(t, err, algo)
		assert.Equal(t, algo, cd.Algorithm())

		for name, src := range payloads() {
			t.Run(string(algo)+"/"+name, func(t *testing.T) {
				frame, err := codec.EncodeFrame(cd, src)
				require.NoError(t, err)
				assert.LessOrEqual(t, len(frame), codec.MaxFrameLen(cd, len(src)))

				size, _, err := codec.ParseFrame(frame)
				require.NoError(t, err)
				assert.Equal(t, uint64(len(src)), size)

				out, err := codec.DecodeFrame(cd, frame, 1<<30)
				require.NoError(t, err)
				assert.True(t, bytes.Equal(src, out), "payload mismatch")
			})
		}
	}
}

func Test_Codec_Levels(t *testing.T) {
	cases := []struct {
		algo  codec.Algorithm
		level int
	}{
		{codec.AlgorithmLZ4, 9},
		{codec.AlgorithmZstd, 1},
		{codec.AlgorithmZstd, 19},
		{codec.AlgorithmS2, 2},
		{codec.AlgorithmS2, 3},
		{codec.AlgorithmBrotli, 11},
	}
	src := []byte(strings.Repeat("abcabcabd", 4096))
	for _, tc := range cases {
		cd, err := codec.New(tc.algo, tc.level)
		require.NoError(t, err, "%s/%d", tc.algo, tc.level)

		frame, err := codec.EncodeFrame(cd, src)
		require.NoError(t, err)
		assert.Less(t, len(frame), len(src))

		out, err := codec.DecodeFrame(cd, frame, uint64(len(src)))
		require.NoError(t, err)
		assert.Equal(t, src, out)
	}

	_, err := codec.New(codec.AlgorithmSnappy, 3)
	assert.ErrorIs(t, err, codec.ErrInvalidLevel)
	_, err = codec.New(codec.AlgorithmLZ4, 10)
	assert.ErrorIs(t, err, codec.ErrInvalidLevel)
	_, err = codec.New(codec.AlgorithmZstd, -1)
	assert.ErrorIs(t, err, codec.ErrInvalidLevel)
	_, err = codec.New("lzma", 0)
	assert.ErrorIs(t, err, codec.ErrUnsupportedAlgorithm)
}

func Test_Frame_Zero_Bytes_Example(t *testing.T) {
	cd, err := codec.New(codec.AlgorithmLZ4, 0)
	require.NoError(t, err)

	frame, err := codec.EncodeFrame(cd, make([]byte, 10000))
	require.NoError(t, err)
	assert.Equal(t, uint64(10000), binary.LittleEndian.Uint64(frame[:8]))
	assert.Less(t, len(frame)-codec.FrameHeaderLen, 10000)
}

func Test_Frame_Corruption(t *testing.T) {
	for _, algo := range codec.Algorithms() {
		cd, err := codec.New(algo, 0)
		require.NoError(t, err)

		src := []byte(strings.Repeat("corrupt me please ", 200))
		frame, err := codec.EncodeFrame(cd, src)
		require.NoError(t, err)

		// header too short
		_, err = codec.DecodeFrame(cd, frame[:4], 1<<20)
		assert.ErrorIs(t, err, codec.ErrCorruptFrame, algo)

		// header claims more than the payload holds
		bad := bytes.Clone(frame)
		binary.LittleEndian.PutUint64(bad, uint64(len(src)+100))
		_, err = codec.DecodeFrame(cd, bad, 1<<20)
		assert.ErrorIs(t, err, codec.ErrCorruptFrame, algo)

		// header beyond the allowed maximum
		_, err = codec.DecodeFrame(cd, frame, uint64(len(src)-1))
		assert.ErrorIs(t, err, codec.ErrCorruptFrame, algo)
	}
}

func Test_Frame_Understated_Size_Is_Bounded(t *testing.T) {
	const expanded = 64 << 20
	src := make([]byte, expanded)

	for _, algo := range codec.Algorithms() {
		cd, err := codec.New(algo, 0)
		require.NoError(t, err)
		frame, err := codec.EncodeFrame(cd, src)
		require.NoError(t, err)
		binary.LittleEndian.PutUint64(frame, 16)

		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		_, err = codec.DecodeFrame(cd, frame, 1<<10)
		runtime.ReadMemStats(&after)

		assert.ErrorIs(t, err, codec.ErrCorruptFrame, algo)
		assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(expanded/2),
			"%s decoded past the size in the header", algo)
	}
}

func Test_Encode_Buffer_Too_Small(t *testing.T) {
	src := randBytes(4096, 7)
	for _, algo := range codec.Algorithms() {
		cd, err := codec.New(algo, 0)
		require.NoError(t, err)
		_, err = cd.Encode(make([]byte, 16), src)
		assert.ErrorIs(t, err, codec.ErrBufferTooSmall, algo)
	}
}

func Test_ParseAlgorithm(t *testing.T) {
	a, err := codec.ParseAlgorithm(" ZSTD ")
	require.NoError(t, err)
	assert.Equal(t, codec.AlgorithmZstd, a)

	_, err = codec.ParseAlgorithm("gzip")
	assert.ErrorIs(t, err, codec.ErrUnsupportedAlgorithm)
}
