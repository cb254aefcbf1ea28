package audio

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// Processor pulls fixed-size buffers from a Source and hands each to a
// handler on its own goroutine.
type Processor struct {
	src    Source
	size   int
	handle func([]float32)

	stopped atomic.Bool
	once    sync.Once
	wg      conc.WaitGroup
}

func NewProcessor(src Source, size int, handle func([]float32)) *Processor {
	if size <= 0 {
		size = BufferSize
	}
	return &Processor{src: src, size: size, handle: handle}
}

func (p *Processor) Start() {
	p.wg.Go(p.loop)
}

// Disconnect detaches the handler. It does not wait for a blocked Read;
// closing the source releases that.
func (p *Processor) Disconnect() {
	p.once.Do(func() { p.stopped.Store(true) })
}

// Wait blocks until the processing goroutine has returned.
func (p *Processor) Wait() { p.wg.Wait() }

func (p *Processor) loop() {
	buf := make([]float32, p.size)
	for !p.stopped.Load() {
		n, err := fill(p.src, buf)
		if n == len(buf) && !p.stopped.Load() {
			out := make([]float32, n)
			copy(out, buf)
			p.handle(out)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, ErrSourceClosed) {
				log.Warn().Str("module", "audio").Err(err).Msg("capture stopped")
			}
			return
		}
	}
}

// fill reads until buf is full or the source fails.
func fill(src Source, buf []float32) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := src.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
