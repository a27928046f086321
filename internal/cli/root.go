// Package cli is the asyncfs command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"asyncfs/internal/config"
	"asyncfs/internal/heap"
	"asyncfs/internal/iomgr"
	"asyncfs/internal/metrics"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var Version = "dev"

// Everything a command needs, built once the flags are parsed. One session
// per invocation.
type session struct {
	configFile string

	cfg     *config.Config
	mgr     *iomgr.IoMgr
	tracked *heap.Heap
	reg     *prometheus.Registry
	srv     *http.Server
	stopped bool
}

func newRootCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asyncfs",
		Short: "Asynchronous, optionally compressed file reads and writes",
		Long: `asyncfs moves whole files through a two stage pipeline: a storage worker
that does the file I/O and a codec worker that compresses and decompresses.

Compressed files are stored as an 8 byte little endian original size followed
by the compressed payload. Readers must use the algorithm the file was written
with.

Settings come from --config, ASYNCFS_* environment variables and flags.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.start(cmd)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&s.configFile, "config", "", "YAML config file")
	f.String("algorithm", "lz4", "Compression algorithm (lz4|zstd|s2|snappy|brotli)")
	f.Int("level", 0, "Compression level, 0 for the algorithm default")
	f.Bool("compress", true, "Compress on write and decompress on read")
	f.String("backend", "os", "Storage backend (os|uring)")
	f.Int("queue", iomgr.DEFAULT_QUEUE_CAPACITY, "Capacity of each stage queue")
	f.Int("storage-cpu", -1, "Pin the storage worker to this CPU")
	f.String("allocator", heap.ALLOC_GO, "Allocator for pipeline buffers (go|pool|slab)")
	f.Bool("track-alloc", false, "Track pipeline allocations and report leaks at exit")
	f.String("log-level", "info", "Log level (debug|info|warn|error)")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address")

	cmd.AddCommand(newPutCmd(s))
	cmd.AddCommand(newGetCmd(s))
	cmd.AddCommand(newRoundtripCmd(s))
	cmd.AddCommand(newStatCmd(s))
	return cmd
}

func Execute() error {
	return execute(&session{}, os.Args[1:], os.Stdout)
}

// execute runs one command line. The session is torn down whether or not the
// command succeeded; cobra only runs post-run hooks after a successful run.
func execute(s *session, args []string, out io.Writer) error {
	cmd := newRootCmd(s)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(out)

	err := cmd.Execute()
	if serr := s.stop(); err == nil {
		err = serr
	}
	return err
}

func setupLogger(level slog.Level) {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))
}

func (s *session) start(cmd *cobra.Command) error {
	cfg, err := config.Load(s.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	setupLogger(cfg.LogLevel())

	mc, err := cfg.IoMgr()
	if err != nil {
		return err
	}
	alloc, tracked, err := cfg.Heap()
	if err != nil {
		return err
	}

	s.cfg = cfg
	s.tracked = tracked
	s.reg = prometheus.NewRegistry()
	mc.Metrics = metrics.New(s.reg)

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		s.srv = srv
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics endpoint", "addr", cfg.Metrics.Addr, "err", err)
			}
		}()
		slog.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}

	s.mgr, err = iomgr.CreateIoMgr(alloc, mc)
	return err
}

// stop is safe to call more than once, and on a session that never started.
// Buffers still held by the tracking heap at this point are reported as an
// error.
func (s *session) stop() error {
	if s.stopped {
		return nil
	}
	s.stopped = true

	var errs []error
	if s.mgr != nil {
		s.mgr.Destroy()
	}
	if s.tracked != nil {
		if leaks := s.tracked.Destroy(); leaks > 0 {
			errs = append(errs, fmt.Errorf("%d pipeline buffers leaked", leaks))
		}
	}
	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		errs = append(errs, s.srv.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
