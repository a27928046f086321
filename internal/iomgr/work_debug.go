package iomgr

import (
	c "asyncfs/internal"
	"fmt"
	"strings"

	"asyncfs/internal/util"

	"github.com/cespare/xxhash"
)

const DUMP_BYTES = 0x40

func (w *Work) String() string {
	if w == nil {
		return "<nil>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Work | Op: %v, Path: %q, Compressed: %v, NullTerm: %v, Done: %v",
		w.op, w.path, w.useCompression, w.nullTerminate, w.done.IsSet())
	if !w.done.IsSet() {
		b.WriteString("\n")
		return b.String()
	}

	// Compressed writes show the frame that went to storage.
	buf := w.buffer
	fmt.Fprintf(&b, ", Status: %d, Size: 0x%x, Owned: %v | Sum: 0x%016x\n",
		StatusOf(w.err), w.size, w.ownedBuf, xxhash.Sum64(buf))
	if w.err != nil {
		fmt.Fprintf(&b, "   ! %v\n", w.err)
	}
	if len(buf) > 0 {
		header := 0
		if w.ownedBuf {
			header = c.FRAME_HEADER_LEN
		}
		b.WriteString(util.HexDump(buf, DUMP_BYTES, header))
	}
	return b.String()
}
