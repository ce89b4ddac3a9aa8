package config_test

import (
	"bytes"
	"errors"
	"flag"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dj-oyu/vio/internal/config"
)

func Test_DefaultConfig_IsValid(t *testing.T) {
	cfg := config.DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Threads)
	assert.Equal(t, "localhost", cfg.Hostname)
	assert.Equal(t, ".", cfg.WorkDir)
	assert.Equal(t, 24.0, cfg.FrameRate)
	assert.Equal(t, 1024*1024, cfg.FrameSize)
	assert.Equal(t, 480*time.Second, cfg.TimeLimit)
	assert.True(t, cfg.Prefetch())
}

func Test_Validate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"zero_threads", func(c *config.Config) { c.Threads = 0 }},
		{"empty_host", func(c *config.Config) { c.Hostname = "" }},
		{"empty_dir", func(c *config.Config) { c.WorkDir = "" }},
		{"zero_rate", func(c *config.Config) { c.FrameRate = 0 }},
		{"negative_rate", func(c *config.Config) { c.FrameRate = -24 }},
		{"nan_rate", func(c *config.Config) { c.FrameRate = math.NaN() }},
		{"inf_rate", func(c *config.Config) { c.FrameRate = math.Inf(1) }},
		{"zero_size", func(c *config.Config) { c.FrameSize = 0 }},
		{"negative_prefetch", func(c *config.Config) { c.PrefetchSize = -1 }},
		{"zero_depth", func(c *config.Config) { c.PrefetchDepth = 0 }},
		{"zero_chunk", func(c *config.Config) { c.ChunkSize = 0 }},
		{"zero_limit", func(c *config.Config) { c.TimeLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrInvalid))
		})
	}
}

func Test_Validate_DepthIgnoredWithoutPrefetch(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PrefetchSize = 0
	cfg.PrefetchDepth = 0

	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.Prefetch())
}

func Test_WorkfileName(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.WorkDir = "/data/bench"
	cfg.Hostname = "node7"

	assert.Equal(t, "/data/bench/vio-work-node7-0", cfg.WorkfileName(0))
	assert.Equal(t, "/data/bench/vio-work-node7-12", cfg.WorkfileName(12))
}

func Test_DesiredSize(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.FrameRate = 23.976
	cfg.FrameSize = 1000
	cfg.TimeLimit = 10 * time.Second

	assert.Equal(t, int64(24*1000*11), cfg.DesiredSize())

	cfg.FrameRate = 30
	cfg.TimeLimit = 1500 * time.Millisecond
	assert.Equal(t, int64(30*1000*2), cfg.DesiredSize())
}

func Test_Load_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vio.yaml")
	yml := "threads: 4\nrate: 29.97\nlimit: 90s\nprefetch_size: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, 29.97, cfg.FrameRate)
	assert.Equal(t, 90*time.Second, cfg.TimeLimit)
	assert.False(t, cfg.Prefetch())
	assert.Equal(t, "localhost", cfg.Hostname)
	assert.Equal(t, 1024*1024, cfg.FrameSize)
}

func Test_Load_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threads: [1, 2"), 0o644))
	_, err = config.Load(path)
	assert.Error(t, err)
}

func Test_FromArgs_ShortAndLongFlags(t *testing.T) {
	var out bytes.Buffer
	cfg, err := config.FromArgs("vio", []string{
		"-t", "3", "-host", "box", "-d", "/tmp/x", "-r", "23.976", "-s", "4096", "-l", "5", "-p", "0",
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Threads)
	assert.Equal(t, "box", cfg.Hostname)
	assert.Equal(t, "/tmp/x", cfg.WorkDir)
	assert.Equal(t, 23.976, cfg.FrameRate)
	assert.Equal(t, 4096, cfg.FrameSize)
	assert.Equal(t, 5*time.Second, cfg.TimeLimit)
	assert.False(t, cfg.Prefetch())
}

func Test_FromArgs_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threads: 8\nhost: filehost\nlimit: 20s\n"), 0o644))

	var out bytes.Buffer
	cfg, err := config.FromArgs("vio", []string{"-threads", "2", "-config", path}, &out)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Threads)
	assert.Equal(t, "filehost", cfg.Hostname)
	assert.Equal(t, 20*time.Second, cfg.TimeLimit)
}

func Test_FromArgs_Errors(t *testing.T) {
	var out bytes.Buffer

	_, err := config.FromArgs("vio", []string{"-h"}, &out)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, out.String(), "Usage: vio [options]")

	_, err = config.FromArgs("vio", []string{"-r", "0"}, &out)
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = config.FromArgs("vio", []string{"-l", "1.5"}, &out)
	assert.Error(t, err)

	_, err = config.FromArgs("vio", []string{"extra"}, &out)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
