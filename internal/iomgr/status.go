package iomgr

import (
	c "asyncfs/internal"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"
	"unicode/utf8"
)

const StatusOK int32 = 0

// StatusInternal covers failures with no OS error behind them: invalid paths
// and codec errors.
const StatusInternal int32 = -1

var (
	ErrInvalidPath   = errors.New("iomgr: invalid path")
	ErrCodec         = errors.New("iomgr: codec failure")
	ErrShortRead     = errors.New("iomgr: short read")
	ErrShortWrite    = errors.New("iomgr: short write")
	ErrInvalidOp     = errors.New("iomgr: invalid operation")
	ErrClosed        = errors.New("iomgr: manager destroyed")
	ErrInvalidConfig = errors.New("iomgr: invalid config")
)

// StatusOf maps an error to the status code a Work reports.
func StatusOf(err error) int32 {
	if err == nil {
		return StatusOK
	}
	if errors.Is(err, ErrCodec) || errors.Is(err, ErrInvalidPath) {
		return StatusInternal
	}
	if errors.Is(err, ErrShortRead) || errors.Is(err, ErrShortWrite) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return int32(syscall.EIO)
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int32(errno)
	}
	return StatusInternal
}

func checkPath(path string) error {
	switch {
	case path == "":
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	case len(path) > c.MAX_PATH_LEN:
		return fmt.Errorf("%w: %d bytes, limit %d", ErrInvalidPath, len(path), c.MAX_PATH_LEN)
	case !utf8.ValidString(path):
		return fmt.Errorf("%w: not valid utf-8", ErrInvalidPath)
	case strings.IndexByte(path, 0) >= 0:
		return fmt.Errorf("%w: contains NUL", ErrInvalidPath)
	}
	return nil
}
