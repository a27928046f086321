package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPutCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "put <local> <dst>",
		Short: "Store a local file at dst, compressed unless --compress=false",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := s.mgr.Read(args[0], nil, false, false)
			defer src.Destroy()
			if err := src.Err(); err != nil {
				return err
			}

			w := s.mgr.Write(args[1], src.Buffer(), s.cfg.Compress)
			defer w.Destroy()
			if err := w.Err(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d -> %d bytes\n", args[1], src.Size(), w.Size())
			return nil
		},
	}
}

func newGetCmd(s *session) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "get <src>",
		Short: "Load a file stored with put and write its contents to stdout or -o",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := s.mgr.Read(args[0], nil, false, s.cfg.Compress)
			defer r.Destroy()
			if err := r.Err(); err != nil {
				return err
			}

			if out == "" {
				_, err := cmd.OutOrStdout().Write(r.Buffer())
				return err
			}
			w := s.mgr.Write(out, r.Buffer(), false)
			defer w.Destroy()
			return w.Err()
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}
