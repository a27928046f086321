package main

import (
	"log/slog"
	"os"
	"time"

	"asyncfs/internal/cli"

	"github.com/lmittmann/tint"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.TimeOnly,
	})))

	if err := cli.Execute(); err != nil {
		slog.Error("asyncfs", "err", err)
		os.Exit(1)
	}
}
