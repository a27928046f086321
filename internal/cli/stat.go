package cli

import (
	"fmt"

	"asyncfs/internal/codec"

	"github.com/cespare/xxhash"
	"github.com/spf13/cobra"
)

func newStatCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <file>...",
		Short: "Show the frame header, ratio and digest of compressed files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				raw := s.mgr.Read(path, nil, false, false)
				if err := raw.Err(); err != nil {
					raw.Destroy()
					return err
				}
				size, body, err := codec.ParseFrame(raw.Buffer())
				raw.Destroy()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				r := s.mgr.Read(path, nil, false, true)
				if err := r.Err(); err != nil {
					r.Destroy()
					return err
				}
				ratio := 0.0
				if size > 0 {
					ratio = float64(len(body)+codec.FrameHeaderLen) / float64(size)
				}
				fmt.Fprintf(out, "%s\n  original: %d\n  payload:  %d\n  ratio:    %.3f\n  xxhash:   %016x\n",
					path, size, len(body), ratio, xxhash.Sum64(r.Buffer()))
				r.Destroy()
			}

			st := s.mgr.Stats()
			fmt.Fprintf(out, "reads %d, failed %d, bytes read %d, decompressed %d\n",
				st.ReadsSubmitted, st.Failed, st.BytesRead, st.BytesDecompressed)
			return nil
		},
	}
}
