// Constants
package internal

import (
	"encoding/binary"
)

const LEN_U64 = 0x08

// Compressed payloads are prefixed with the original size as a u64.
const FRAME_HEADER_LEN = LEN_U64

// Longest path (in bytes) a work item accepts.
const MAX_PATH_LEN = 0x400

// Default alignment handed to allocators for work buffers.
const BUF_ALIGN = 0x08

// This is an alias for endianness effectively, so we only define endianness in one place (here).
// The frame header is little endian on disk.
var Bin = binary.LittleEndian
