package playback

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Prefetcher decouples disk reads from pacing. A background goroutine reads
// the file in large blocks and sends each read length over a bounded
// channel; the pacing side turns those lengths into credit. The channel
// capacity bounds how far the reader can run ahead.
type Prefetcher struct {
	ch     chan int
	stop   chan struct{}
	wg     sync.WaitGroup
	err    error // Set by the producer before it closes ch
	credit int

	stopOnce sync.Once
}

// StartPrefetch starts the producer goroutine reading r in bufSize blocks
// into a queue holding up to depth lengths
func StartPrefetch(r io.Reader, bufSize, depth int) *Prefetcher {
	p := &Prefetcher{
		ch:   make(chan int, depth),
		stop: make(chan struct{}),
	}

	p.wg.Add(1)
	go p.readFile(r, make([]byte, bufSize))

	return p
}

// readFile runs until end of file, a read error or Close
func (p *Prefetcher) readFile(r io.Reader, buf []byte) {
	defer p.wg.Done()
	defer close(p.ch)

	for {
		select {
		case <-p.stop:
			return
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			select {
			case p.ch <- n:
			case <-p.stop:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.err = fmt.Errorf("prefetch read failed: %w", err)
			}
			return
		}
		if n == 0 {
			return
		}
	}
}

// receive blocks for the next block length. It returns false once the
// producer has finished and the queue is drained.
func (p *Prefetcher) receive() bool {
	n, ok := <-p.ch
	if !ok {
		return false
	}
	p.credit += n
	return true
}

// Next consumes up to max bytes of credit, blocking on the queue when no
// credit is left. Must only be called from the pacing goroutine.
func (p *Prefetcher) Next(max int) (int, error) {
	if p.credit == 0 && !p.receive() {
		if p.err != nil {
			return 0, p.err
		}
		return 0, io.EOF
	}

	take := max
	if take > p.credit {
		take = p.credit
	}
	p.credit -= take

	// Look ahead so exhaustion is reported together with the last bytes
	if p.credit == 0 && !p.receive() {
		if p.err != nil {
			return take, p.err
		}
		return take, io.EOF
	}
	return take, nil
}

// Credit returns the bytes received but not yet consumed
func (p *Prefetcher) Credit() int {
	return p.credit
}

// Close stops the producer and waits for it to exit
func (p *Prefetcher) Close() error {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	// Unblock a producer waiting on a full queue
	for range p.ch {
	}
	p.wg.Wait()
	return nil
}
