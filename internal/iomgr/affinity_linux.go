//go:build linux

package iomgr

import "golang.org/x/sys/unix"

// pinThread restricts the calling OS thread to one CPU. The caller must hold
// the thread with runtime.LockOSThread.
func pinThread(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
