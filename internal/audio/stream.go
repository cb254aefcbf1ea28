package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	resampling "github.com/tphakala/go-audio-resampling"
)

// readFrames is how many input frames are pulled from the reader per fill.
const readFrames = 1024

// StreamMicrophone captures from a reader of interleaved s16le PCM, converting
// to the requested rate and to mono.
type StreamMicrophone struct {
	r          io.Reader
	sampleRate int
	channels   int
	realtime   bool
}

type StreamOption func(*StreamMicrophone)

// WithRealtime paces reads to the output sample rate, as a live device would.
func WithRealtime(on bool) StreamOption {
	return func(m *StreamMicrophone) { m.realtime = on }
}

func NewStreamMicrophone(r io.Reader, sampleRate, channels int, opts ...StreamOption) *StreamMicrophone {
	m := &StreamMicrophone{r: r, sampleRate: sampleRate, channels: channels, realtime: true}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open ignores the processing flags in c; only rate and channel count apply.
func (m *StreamMicrophone) Open(ctx context.Context, c Constraints) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.sampleRate <= 0 || m.channels <= 0 {
		return nil, fmt.Errorf("invalid input format: %d Hz, %d channels", m.sampleRate, m.channels)
	}
	if c.Channels != 0 && c.Channels != 1 {
		return nil, fmt.Errorf("unsupported channel count %d", c.Channels)
	}
	rate := c.SampleRate
	if rate == 0 {
		rate = SampleRate
	}

	s := &streamSource{
		r:        m.r,
		inCh:     m.channels,
		outRate:  rate,
		realtime: m.realtime,
		done:     make(chan struct{}),
	}
	if m.sampleRate != rate {
		rs, err := resampling.New(&resampling.Config{
			InputRate:  float64(m.sampleRate),
			OutputRate: float64(rate),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create resampler: %w", err)
		}
		s.rs = rs
	}
	return s, nil
}

type streamSource struct {
	r        io.Reader
	inCh     int
	outRate  int
	realtime bool
	rs       resampling.Resampler

	mu      sync.Mutex
	pending []float32
	eof     bool
	raw     []byte
	started time.Time
	emitted int

	closeOnce sync.Once
	done      chan struct{}
}

func (s *streamSource) Read(buf []float32) (int, error) {
	select {
	case <-s.done:
		return 0, ErrSourceClosed
	default:
	}

	s.mu.Lock()
	for len(s.pending) < len(buf) && !s.eof {
		if err := s.fillLocked(); err != nil {
			s.mu.Unlock()
			return 0, err
		}
	}
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return 0, io.EOF
	}
	n := copy(buf, s.pending)
	s.pending = s.pending[n:]
	if s.started.IsZero() {
		s.started = time.Now()
	}
	s.emitted += n
	due := s.started.Add(time.Duration(s.emitted) * time.Second / time.Duration(s.outRate))
	s.mu.Unlock()

	if s.realtime {
		if wait := time.Until(due); wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-t.C:
			case <-s.done:
				return n, ErrSourceClosed
			}
		}
	}
	return n, nil
}

func (s *streamSource) fillLocked() error {
	frameBytes := 2 * s.inCh
	if cap(s.raw) < readFrames*frameBytes {
		s.raw = make([]byte, readFrames*frameBytes)
	}
	n, err := io.ReadAtLeast(s.r, s.raw[:readFrames*frameBytes], frameBytes)
	n -= n % frameBytes
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return err
		}
		s.eof = true
	}
	if n > 0 {
		mono := downmix(S16ToFloat(s.raw[:n]), s.inCh)
		if s.rs != nil {
			out, err := s.rs.Process(mono)
			if err != nil {
				return fmt.Errorf("resample error: %w", err)
			}
			mono = out
		}
		s.appendLocked(mono)
	}
	// The resampler holds back a filter's worth of samples until flushed.
	if s.eof && s.rs != nil {
		tail, err := s.rs.Flush()
		if err != nil {
			return fmt.Errorf("resample flush error: %w", err)
		}
		s.appendLocked(tail)
	}
	return nil
}

func (s *streamSource) appendLocked(samples []float64) {
	for _, v := range samples {
		s.pending = append(s.pending, float32(v))
	}
}

func (s *streamSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if c, ok := s.r.(io.Closer); ok {
			_ = c.Close()
		}
	})
	return nil
}

func downmix(in []float64, channels int) []float64 {
	if channels == 1 {
		return in
	}
	out := make([]float64, len(in)/channels)
	for i := range out {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += in[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}
