package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config is the immutable run configuration. Sessions receive a copy.
type Config struct {
	Threads       int           `yaml:"threads"`
	Hostname      string        `yaml:"host"`
	WorkDir       string        `yaml:"dir"`
	FrameRate     float64       `yaml:"rate"`
	FrameSize     int           `yaml:"size"`
	PrefetchSize  int           `yaml:"prefetch_size"`  // Bytes per background read, 0 reads the file directly
	PrefetchDepth int           `yaml:"prefetch_depth"` // Handoff queue capacity
	ChunkSize     int           `yaml:"chunk_size"`     // Max bytes consumed per deadline check
	TimeLimit     time.Duration `yaml:"limit"`
	MonitorAddr   string        `yaml:"monitor_addr"` // Empty disables /metrics and /status
	PprofAddr     string        `yaml:"pprof_addr"`   // Empty disables pprof
	LogLevel      string        `yaml:"log_level"`
	LogColor      bool          `yaml:"log_color"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		Threads:       1,
		Hostname:      "localhost",
		WorkDir:       ".",
		FrameRate:     24.0,
		FrameSize:     1024 * 1024,
		PrefetchSize:  4 * 1024 * 1024,
		PrefetchDepth: 8,
		ChunkSize:     256 * 1024,
		TimeLimit:     8 * time.Minute,
		LogLevel:      "info",
		LogColor:      true,
	}
}

// Load reads a YAML file on top of the defaults. Keys absent from the file
// keep their default value.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations the playback engine cannot run
func (c Config) Validate() error {
	switch {
	case c.Threads < 1:
		return fmt.Errorf("%w: thread count must be at least 1, got %d", ErrInvalid, c.Threads)
	case c.Hostname == "":
		return fmt.Errorf("%w: host must not be empty", ErrInvalid)
	case c.WorkDir == "":
		return fmt.Errorf("%w: working directory must not be empty", ErrInvalid)
	case math.IsNaN(c.FrameRate) || math.IsInf(c.FrameRate, 0) || c.FrameRate <= 0:
		return fmt.Errorf("%w: frame rate must be positive, got %v", ErrInvalid, c.FrameRate)
	case c.FrameSize <= 0:
		return fmt.Errorf("%w: frame size must be positive, got %d", ErrInvalid, c.FrameSize)
	case c.PrefetchSize < 0:
		return fmt.Errorf("%w: prefetch size must not be negative, got %d", ErrInvalid, c.PrefetchSize)
	case c.PrefetchSize > 0 && c.PrefetchDepth < 1:
		return fmt.Errorf("%w: prefetch depth must be at least 1, got %d", ErrInvalid, c.PrefetchDepth)
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalid, c.ChunkSize)
	case c.TimeLimit <= 0:
		return fmt.Errorf("%w: time limit must be positive, got %s", ErrInvalid, c.TimeLimit)
	}
	return nil
}

// WorkfileName returns the work file path for a thread
func (c Config) WorkfileName(threadno int) string {
	return filepath.Join(c.WorkDir, fmt.Sprintf("vio-work-%s-%d", c.Hostname, threadno))
}

// DesiredSize returns the minimum work file size: one extra second of
// frames beyond the time limit, rounded up to whole frames per second.
func (c Config) DesiredSize() int64 {
	perSecond := int64(math.Ceil(c.FrameRate)) * int64(c.FrameSize)
	return perSecond * (int64(c.TimeLimit/time.Second) + 1)
}

// Prefetch reports whether sessions read through the prefetch pipeline
func (c Config) Prefetch() bool {
	return c.PrefetchSize > 0
}
