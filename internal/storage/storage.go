// Package storage is the raw file access the storage stage runs on top of.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// File is an open file as the storage stage sees it: sequential reads and
// writes from offset 0, plus its size.
type File interface {
	io.Reader
	io.Writer
	io.Closer
	Stat() (os.FileInfo, error)
}

// Backend opens files. Implementations must be safe for concurrent use,
// although the storage stage only ever calls them from its own goroutine.
type Backend interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Close() error
}

const (
	BackendOS    = "os"
	BackendURing = "uring"
)

var (
	ErrUnknownBackend = errors.New("storage: unknown backend")
	ErrInjected       = errors.New("storage: injected fault")
)

// OS goes straight to the os package.
type OS struct{}

func (OS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (OS) Close() error { return nil }

// Open builds a backend by name.
func Open(name string) (Backend, error) {
	switch name {
	case "", BackendOS:
		return OS{}, nil
	case BackendURing:
		r, err := CreateRing()
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}
