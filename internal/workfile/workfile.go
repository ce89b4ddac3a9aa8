// Package workfile provisions the per-thread files that playback sessions
// read from. Files are filled with seeded pseudorandom bytes so filesystem
// compression or deduplication cannot make the device look faster than it is.
package workfile

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/dj-oyu/vio/internal/config"
	"github.com/dj-oyu/vio/internal/logger"
)

// DefaultBlockSize is the write size used to extend a work file
const DefaultBlockSize = 1024 * 1024

// Provisioner creates or extends work files
type Provisioner struct {
	blockSize int
	seed      func() ([32]byte, error)
	log       *logger.Module
}

// Option configures a Provisioner
type Option func(*Provisioner)

// WithBlockSize sets the write size
func WithBlockSize(n int) Option {
	return func(p *Provisioner) {
		if n > 0 {
			p.blockSize = n
		}
	}
}

// WithSeed fixes the generator seed, making the file contents reproducible
func WithSeed(seed [32]byte) Option {
	return func(p *Provisioner) {
		p.seed = func() ([32]byte, error) { return seed, nil }
	}
}

// WithLogger sets the logger handle
func WithLogger(m *logger.Module) Option {
	return func(p *Provisioner) {
		p.log = m
	}
}

// NewProvisioner creates a provisioner seeding each file from crypto/rand
func NewProvisioner(opts ...Option) *Provisioner {
	p := &Provisioner{
		blockSize: DefaultBlockSize,
		seed:      randomSeed,
		log:       logger.Named("Workfile"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func randomSeed() ([32]byte, error) {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return seed, fmt.Errorf("failed to seed generator: %w", err)
	}
	return seed, nil
}

// Ensure makes sure path is a regular file of at least size bytes. Existing
// content is kept and only the missing tail is appended. It reports whether
// anything had to be written.
func (p *Provisioner) Ensure(path string, size int64) (bool, error) {
	var sofar int64
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.Mode().IsRegular() {
			return false, fmt.Errorf("work file %s is not a regular file", path)
		}
		sofar = info.Size()
	case os.IsNotExist(err):
	default:
		return false, fmt.Errorf("failed to stat work file: %w", err)
	}

	if sofar >= size {
		return false, nil
	}

	seed, err := p.seed()
	if err != nil {
		return false, err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return false, fmt.Errorf("failed to open work file: %w", err)
	}

	p.log.Info("Extending %s from %d to %d bytes", path, sofar, size)

	gen := rand.NewChaCha8(seed)
	buf := make([]byte, p.blockSize)
	for sofar < size {
		_, _ = gen.Read(buf)
		n, err := file.Write(buf)
		sofar += int64(n)
		if err != nil {
			file.Close()
			return true, fmt.Errorf("failed to write work file %s: %w", path, err)
		}
	}

	if err := file.Sync(); err != nil {
		file.Close()
		return true, fmt.Errorf("failed to sync work file: %w", err)
	}
	if err := file.Close(); err != nil {
		return true, fmt.Errorf("failed to close work file: %w", err)
	}
	return true, nil
}

// EnsureAll verifies the work file of every thread. It reports whether any
// file had to be created or extended.
func (p *Provisioner) EnsureAll(cfg config.Config) (bool, error) {
	size := cfg.DesiredSize()
	created := false
	for i := 0; i < cfg.Threads; i++ {
		name := cfg.WorkfileName(i)
		p.log.Info("Verifying existence of %s", name)

		wrote, err := p.Ensure(name, size)
		if err != nil {
			return created, err
		}
		created = created || wrote
	}
	return created, nil
}
