package util

import (
	"fmt"
	"strings"
)

// HexDump renders up to limit bytes of data, 16 bytes per row, with offsets.
// Rows inside the first headerLen bytes are marked with '>' so a frame header
// stands out from its payload.
func HexDump(data []byte, limit int, headerLen int) string {
	if limit > len(data) {
		limit = len(data)
	}

	const bytesPerRow = 16
	var b strings.Builder

	for i := 0; i < limit; i += bytesPerRow {
		mark := '|'
		if i < headerLen {
			mark = '>'
		}
		fmt.Fprintf(&b, "   %c 0x%04x  ", mark, i)

		for j := 0; j < bytesPerRow; j++ {
			if i+j < limit {
				fmt.Fprintf(&b, "%02x ", data[i+j])
			} else {
				b.WriteString("   ")
			}
			// Space every 8 bytes to keep your eyes from crossing
			if (j+1)%8 == 0 {
				b.WriteByte(' ')
			}
		}

		for j := 0; j < bytesPerRow && i+j < limit; j++ {
			c := data[i+j]
			if c < 0x20 || c > 0x7e {
				c = '.'
			}
			b.WriteByte(c)
		}
		b.WriteByte('\n')
	}
	if limit < len(data) {
		fmt.Fprintf(&b, "   ... %d more bytes\n", len(data)-limit)
	}

	return b.String()
}
