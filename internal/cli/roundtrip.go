package cli

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"time"

	"asyncfs/internal/iomgr"

	"github.com/cespare/xxhash"
	"github.com/spf13/cobra"
)

func newRoundtripCmd(s *session) *cobra.Command {
	var count, size int
	cmd := &cobra.Command{
		Use:   "roundtrip <dir>",
		Short: "Write a batch of files into dir concurrently, read them back and verify digests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return roundtrip(cmd, s, args[0], count, size)
		},
	}
	cmd.Flags().IntVar(&count, "count", 32, "Number of files")
	cmd.Flags().IntVar(&size, "size", 64<<10, "Bytes per file")
	return cmd
}

func roundtrip(cmd *cobra.Command, s *session, dir string, count, size int) error {
	m := s.mgr
	compress := s.cfg.Compress
	start := time.Now()

	sums := make([]uint64, count)
	paths := make([]string, count)
	writes := make([]*iomgr.Work, count)
	for i := range count {
		data := payload(i, size)
		sums[i] = xxhash.Sum64(data)
		paths[i] = filepath.Join(dir, fmt.Sprintf("roundtrip-%04d.bin", i))
		writes[i] = m.Write(paths[i], data, compress)
	}
	for _, w := range writes {
		err := w.Err()
		w.Destroy()
		if err != nil {
			return err
		}
	}

	reads := make([]*iomgr.Work, count)
	for i := range count {
		reads[i] = m.Read(paths[i], nil, false, compress)
	}
	bad := 0
	for i, r := range reads {
		if err := r.Err(); err != nil {
			r.Destroy()
			return err
		}
		if xxhash.Sum64(r.Buffer()) != sums[i] {
			bad++
		}
		r.Destroy()
	}

	st := m.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "%d files, %d mismatched, %d bytes logical, %d on disk, %v\n",
		count, bad, count*size, st.BytesWritten, time.Since(start).Round(time.Millisecond))
	if bad > 0 {
		return fmt.Errorf("%d of %d files did not read back intact", bad, count)
	}
	return nil
}

// payload is half random, half repeated text so compression has something to
// do and something it cannot do.
func payload(seed int, size int) []byte {
	r := rand.New(rand.NewPCG(uint64(seed), 0x6173796e63))
	buf := make([]byte, size)
	half := size / 2
	for i := range half {
		buf[i] = byte(r.Uint32())
	}
	text := bytes.Repeat([]byte(fmt.Sprintf("file %d ", seed)), size/8+1)
	copy(buf[half:], text)
	return buf
}
