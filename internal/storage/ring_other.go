//go:build !linux

package storage

import (
	"errors"
	"os"
)

var ErrRingUnsupported = errors.New("storage: io_uring backend requires linux")

type Ring struct{}

func CreateRing() (*Ring, error) {
	return nil, ErrRingUnsupported
}

func (*Ring) OpenFile(string, int, os.FileMode) (File, error) {
	return nil, ErrRingUnsupported
}

func (*Ring) Close() error { return nil }
