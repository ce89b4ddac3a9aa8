package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"
)

// secondsValue binds a whole-seconds flag to a time.Duration
type secondsValue struct {
	d *time.Duration
}

func (v secondsValue) String() string {
	if v.d == nil {
		return "0"
	}
	return strconv.FormatInt(int64(*v.d/time.Second), 10)
}

func (v secondsValue) Set(s string) error {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("expected whole seconds: %w", err)
	}
	*v.d = time.Duration(n) * time.Second
	return nil
}

// FromArgs builds a validated Config from command-line arguments.
//
// Precedence: explicit flags > YAML file given with -config > defaults.
// Returns flag.ErrHelp when -h is given.
func FromArgs(program string, args []string, output io.Writer) (Config, error) {
	cfg := DefaultConfig()

	fs := flag.NewFlagSet(program, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [options]\n", program)
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "YAML configuration file")

	fs.IntVar(&cfg.Threads, "t", cfg.Threads, "set thread count (shorthand)")
	fs.IntVar(&cfg.Threads, "threads", cfg.Threads, "set thread count")
	fs.StringVar(&cfg.Hostname, "o", cfg.Hostname, "set hostname (shorthand)")
	fs.StringVar(&cfg.Hostname, "host", cfg.Hostname, "set hostname")
	fs.StringVar(&cfg.WorkDir, "d", cfg.WorkDir, "set working directory (shorthand)")
	fs.StringVar(&cfg.WorkDir, "dir", cfg.WorkDir, "set working directory")
	fs.Float64Var(&cfg.FrameRate, "r", cfg.FrameRate, "set frame rate (shorthand)")
	fs.Float64Var(&cfg.FrameRate, "rate", cfg.FrameRate, "set frame rate")
	fs.IntVar(&cfg.FrameSize, "s", cfg.FrameSize, "set frame size in bytes (shorthand)")
	fs.IntVar(&cfg.FrameSize, "size", cfg.FrameSize, "set frame size in bytes")
	fs.Var(secondsValue{&cfg.TimeLimit}, "l", "set time limit in seconds (shorthand)")
	fs.Var(secondsValue{&cfg.TimeLimit}, "limit", "set time limit in seconds")
	fs.IntVar(&cfg.PrefetchSize, "p", cfg.PrefetchSize, "set prefetch read size in bytes, 0 disables prefetch (shorthand)")
	fs.IntVar(&cfg.PrefetchSize, "prefetch", cfg.PrefetchSize, "set prefetch read size in bytes, 0 disables prefetch")
	fs.IntVar(&cfg.PrefetchDepth, "prefetch-depth", cfg.PrefetchDepth, "prefetch handoff queue capacity")
	fs.IntVar(&cfg.ChunkSize, "chunk", cfg.ChunkSize, "max bytes consumed between deadline checks")
	fs.StringVar(&cfg.MonitorAddr, "monitor", cfg.MonitorAddr, "metrics and status HTTP address (empty disables)")
	fs.StringVar(&cfg.PprofAddr, "pprof", cfg.PprofAddr, "pprof server address (empty disables)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error, silent)")
	fs.BoolVar(&cfg.LogColor, "log-color", cfg.LogColor, "Enable colored log output")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("%w: unexpected arguments %v", ErrInvalid, fs.Args())
	}

	if *configPath != "" {
		explicit := make(map[string]string)
		fs.Visit(func(f *flag.Flag) {
			explicit[f.Name] = f.Value.String()
		})

		if err := cfg.LoadFile(*configPath); err != nil {
			return Config{}, err
		}

		// Flags given on the command line win over the file
		for name, value := range explicit {
			if err := fs.Set(name, value); err != nil {
				return Config{}, fmt.Errorf("failed to reapply -%s: %w", name, err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
