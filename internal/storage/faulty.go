package storage

import (
	"io"
	"os"
	"strings"
	"sync"
)

// Fault describes how a file matching a rule misbehaves.
type Fault struct {
	FailOpen       bool
	FailStat       bool
	FailAfterBytes int64 // Fail reads and writes after this many bytes on the file. -1 to disable.
	ShortRead      bool  // Past FailAfterBytes reads hit EOF instead of failing.
	Err            error // Defaults to ErrInjected.

	// If set, OpenFile blocks until the channel is closed.
	Gate <-chan struct{}
}

// Faulty wraps a Backend and injects errors for paths containing a pattern.
type Faulty struct {
	Backend Backend
	mu      sync.Mutex
	rules   map[string]Fault
	opens   int
}

func NewFaulty(b Backend) *Faulty {
	if b == nil {
		b = OS{}
	}
	return &Faulty{
		Backend: b,
		rules:   make(map[string]Fault),
	}
}

// AddRule sets the fault for every path containing pattern. The last matching
// rule wins.
func (f *Faulty) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

// Opens counts OpenFile calls so far, including failed ones.
func (f *Faulty) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *Faulty) match(name string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	fault := Fault{FailAfterBytes: -1}
	found := false
	for pattern, rule := range f.rules {
		if strings.Contains(name, pattern) {
			fault = rule
			found = true
		}
	}
	if fault.Err == nil {
		fault.Err = ErrInjected
	}
	return fault, found
}

func (f *Faulty) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	fault, found := f.match(name)
	if fault.Gate != nil {
		<-fault.Gate
	}
	if found && fault.FailOpen {
		return nil, &os.PathError{Op: "open", Path: name, Err: fault.Err}
	}

	file, err := f.Backend.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	if !found {
		return file, nil
	}
	return &faultyFile{File: file, name: name, fault: fault}, nil
}

func (f *Faulty) Close() error {
	return f.Backend.Close()
}

type faultyFile struct {
	File
	name  string
	fault Fault
	done  int64
}

func (ff *faultyFile) budget(n int) (int, bool) {
	if ff.fault.FailAfterBytes < 0 {
		return n, true
	}
	left := ff.fault.FailAfterBytes - ff.done
	if left <= 0 {
		return 0, false
	}
	return int(min(int64(n), left)), true
}

func (ff *faultyFile) Read(p []byte) (int, error) {
	n, ok := ff.budget(len(p))
	if !ok {
		if ff.fault.ShortRead {
			return 0, io.EOF
		}
		return 0, &os.PathError{Op: "read", Path: ff.name, Err: ff.fault.Err}
	}
	m, err := ff.File.Read(p[:n])
	ff.done += int64(m)
	return m, err
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	n, ok := ff.budget(len(p))
	if !ok || n < len(p) {
		m, _ := ff.File.Write(p[:n])
		ff.done += int64(m)
		return m, &os.PathError{Op: "write", Path: ff.name, Err: ff.fault.Err}
	}
	m, err := ff.File.Write(p)
	ff.done += int64(m)
	return m, err
}

func (ff *faultyFile) Stat() (os.FileInfo, error) {
	if ff.fault.FailStat {
		return nil, &os.PathError{Op: "stat", Path: ff.name, Err: ff.fault.Err}
	}
	return ff.File.Stat()
}
