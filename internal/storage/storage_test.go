package storage_test

import (
	"asyncfs/internal/storage"
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeThenRead(t *testing.T, b storage.Backend, path string, data []byte) []byte {
	t.Helper()
	f, err := b.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	n, err := f.Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	require.NoError(t, f.Close())

	f, err = b.OpenFile(path, os.O_RDONLY, 0)
	require.NoError(t, err)
	defer f.Close()
	fi, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), fi.Size())

	out, err := io.ReadAll(f)
	require.NoError(t, err)
	return out
}

func Test_OS_Backend(t *testing.T) {
	b, err := storage.Open(storage.BackendOS)
	require.NoError(t, err)
	defer b.Close()

	path := filepath.Join(t.TempDir(), "os.bin")
	assert.Equal(t, []byte("os backend"), writeThenRead(t, b, path, []byte("os backend")))

	_, err = b.OpenFile(filepath.Join(t.TempDir(), "missing"), os.O_RDONLY, 0)
	assert.ErrorIs(t, err, os.ErrNotExist)
	var errno syscall.Errno
	assert.True(t, errors.As(err, &errno))
}

func Test_Open_Unknown_Backend(t *testing.T) {
	_, err := storage.Open("tape")
	assert.ErrorIs(t, err, storage.ErrUnknownBackend)
}

func Test_Faulty_Open_And_Stat(t *testing.T) {
	dir := t.TempDir()
	f := storage.NewFaulty(nil)
	f.AddRule("noopen", storage.Fault{FailOpen: true, Err: syscall.EACCES})
	f.AddRule("nostat", storage.Fault{FailStat: true, FailAfterBytes: -1})

	_, err := f.OpenFile(filepath.Join(dir, "noopen"), os.O_RDWR|os.O_CREATE, 0o644)
	assert.ErrorIs(t, err, syscall.EACCES)

	file, err := f.OpenFile(filepath.Join(dir, "nostat"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	_, err = file.Stat()
	assert.ErrorIs(t, err, storage.ErrInjected)
	require.NoError(t, file.Close())

	assert.Equal(t, 2, f.Opens())
}

func Test_Faulty_Byte_Budget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short")
	require.NoError(t, os.WriteFile(path, make([]byte, 100), 0o644))

	f := storage.NewFaulty(storage.OS{})
	f.AddRule("short", storage.Fault{FailAfterBytes: 10, ShortRead: true})

	file, err := f.OpenFile(path, os.O_RDONLY, 0)
	require.NoError(t, err)
	buf := make([]byte, 100)
	_, err = io.ReadFull(file, buf)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	file.Close()

	f.AddRule("short", storage.Fault{FailAfterBytes: 10})
	file, err = f.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	n, err := file.Write(make([]byte, 50))
	assert.Equal(t, 10, n)
	assert.ErrorIs(t, err, storage.ErrInjected)
	file.Close()
}

func Test_Faulty_Gate_Blocks_Open(t *testing.T) {
	gate := make(chan struct{})
	f := storage.NewFaulty(nil)
	f.AddRule("gated", storage.Fault{Gate: gate, FailAfterBytes: -1})

	opened := make(chan error, 1)
	go func() {
		file, err := f.OpenFile(filepath.Join(t.TempDir(), "gated"), os.O_RDWR|os.O_CREATE, 0o644)
		if err == nil {
			file.Close()
		}
		opened <- err
	}()

	select {
	case <-opened:
		t.Fatal("open should wait for the gate")
	case <-time.After(30 * time.Millisecond):
	}
	close(gate)
	assert.NoError(t, <-opened)
}
