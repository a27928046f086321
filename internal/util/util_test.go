package util_test

import (
	"asyncfs/internal/util"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_HexDump(t *testing.T) {
	data := []byte("\x10\x27\x00\x00\x00\x00\x00\x00hello, world!!!!tail")

	out := util.HexDump(data, 64, 8)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "> 0x0000")
	assert.Contains(t, lines[0], "10 27 00 00")
	assert.Contains(t, lines[1], "| 0x0010")
	assert.Contains(t, lines[1], "tail")

	out = util.HexDump(data, 4, 0)
	assert.Contains(t, out, "more bytes")
	assert.Equal(t, "", util.HexDump(nil, 16, 0))
}
