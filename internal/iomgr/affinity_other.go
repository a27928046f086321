//go:build !linux

package iomgr

import "errors"

func pinThread(int) error {
	return errors.New("iomgr: cpu pinning requires linux")
}
