// Package config loads asyncfs settings from defaults, an optional YAML file,
// ASYNCFS_* environment variables and command line flags, in rising order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"

	"asyncfs/internal/codec"
	"asyncfs/internal/heap"
	"asyncfs/internal/iomgr"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "ASYNCFS"

type Config struct {
	Queue          int         `mapstructure:"queue"`
	Algorithm      string      `mapstructure:"algorithm"`
	Level          int         `mapstructure:"level"`
	Compress       bool        `mapstructure:"compress"`
	Backend        string      `mapstructure:"backend"`
	StorageCPU     int         `mapstructure:"storage_cpu"`
	FilePerm       os.FileMode `mapstructure:"file_perm"`
	MaxDecodedSize uint64      `mapstructure:"max_decoded_size"`

	// Allocator for buffers the pipeline owns: "go", "pool" or "slab".
	// TrackAlloc wraps it in a heap.Heap that reports leaks at exit.
	Allocator  string `mapstructure:"allocator"`
	TrackAlloc bool   `mapstructure:"track_alloc"`

	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	// Listen address for /metrics; empty disables the endpoint.
	Addr string `mapstructure:"addr"`
}

// Flag names that override config keys when set.
var flagKeys = map[string]string{
	"queue":        "queue",
	"algorithm":    "algorithm",
	"level":        "level",
	"compress":     "compress",
	"backend":      "backend",
	"storage-cpu":  "storage_cpu",
	"allocator":    "allocator",
	"track-alloc":  "track_alloc",
	"log-level":    "logging.level",
	"metrics-addr": "metrics.addr",
}

func setDefaults(v *viper.Viper) {
	d := iomgr.DefaultConfig()
	v.SetDefault("queue", d.QueueCapacity)
	v.SetDefault("algorithm", string(d.Algorithm))
	v.SetDefault("level", d.Level)
	v.SetDefault("compress", true)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("storage_cpu", d.StorageCPU)
	v.SetDefault("file_perm", d.FilePerm)
	v.SetDefault("max_decoded_size", d.MaxDecodedSize)
	v.SetDefault("allocator", heap.ALLOC_GO)
	v.SetDefault("track_alloc", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.addr", "")
}

// Load reads the config file at path (skipped when empty), the environment,
// and any flags in flags that were set explicitly. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s: %w", path, err)
			}
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(fileModeDecodeHook())); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if _, err := cfg.IoMgr(); err != nil {
		return nil, err
	}
	if _, _, err := cfg.Heap(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// fileModeDecodeHook accepts permissions written as octal strings ("0640").
// YAML reads an unquoted 0640 as decimal, so files must quote it.
func fileModeDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(os.FileMode(0)) || from.Kind() != reflect.String {
			return data, nil
		}
		mode, err := strconv.ParseUint(data.(string), 8, 32)
		if err != nil {
			return nil, fmt.Errorf("file_perm %q: %w", data, err)
		}
		return os.FileMode(mode), nil
	}
}

// IoMgr converts to the manager's config and validates it.
func (c *Config) IoMgr() (iomgr.Config, error) {
	algo, err := codec.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return iomgr.Config{}, err
	}
	out := iomgr.Config{
		QueueCapacity:  c.Queue,
		Algorithm:      algo,
		Level:          c.Level,
		Backend:        c.Backend,
		StorageCPU:     c.StorageCPU,
		FilePerm:       c.FilePerm,
		MaxDecodedSize: c.MaxDecodedSize,
	}
	if err := out.Validate(); err != nil {
		return iomgr.Config{}, err
	}
	return out, nil
}

// Heap builds the configured allocator. tracked is the same allocator when
// TrackAlloc is set, nil otherwise.
func (c *Config) Heap() (alloc heap.Allocator, tracked *heap.Heap, err error) {
	alloc, err = heap.Open(c.Allocator)
	if err != nil {
		return nil, nil, err
	}
	if c.TrackAlloc {
		tracked = heap.CreateHeap(alloc, true)
		alloc = tracked
	}
	return alloc, tracked, nil
}

// LogLevel parses Logging.Level, falling back to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
