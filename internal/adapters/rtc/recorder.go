package rtc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/h264writer"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnsupportedCodec = errors.New("no recorder for codec")
	ErrRecorderClosed   = errors.New("recorder closed")
)

// Recorder is a PacketSink writing each track to its own file in dir:
// Opus to .ogg, VP8/VP9/AV1 to .ivf and H264 to an Annex B .h264 stream.
type Recorder struct {
	dir string

	mu      sync.Mutex
	writers map[string]media.Writer
	counts  map[string]int
	closed  bool
}

var _ PacketSink = (*Recorder)(nil)

// NewRecorder creates dir if needed.
func NewRecorder(dir string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create recording dir: %w", err)
	}
	return &Recorder{
		dir:     dir,
		writers: make(map[string]media.Writer),
		counts:  make(map[string]int),
	}, nil
}

func (r *Recorder) WriteRTP(t TrackInfo, pkt *rtp.Packet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}

	w, ok := r.writers[t.ID]
	if !ok {
		var (
			path string
			err  error
		)
		w, path, err = r.open(t)
		if err != nil {
			return err
		}
		r.writers[t.ID] = w
		log.Info().Str("module", "recorder").Str("track_id", t.ID).Str("file", path).Msg("recording track")
	}
	return w.WriteRTP(pkt)
}

func (r *Recorder) open(t TrackInfo) (media.Writer, string, error) {
	mime := t.MimeType
	var ext string
	switch {
	case strings.EqualFold(mime, webrtc.MimeTypeOpus):
		ext = ".ogg"
	case strings.EqualFold(mime, webrtc.MimeTypeVP8),
		strings.EqualFold(mime, webrtc.MimeTypeVP9),
		strings.EqualFold(mime, webrtc.MimeTypeAV1):
		ext = ".ivf"
	case strings.EqualFold(mime, webrtc.MimeTypeH264):
		ext = ".h264"
	default:
		return nil, "", fmt.Errorf("%w %q", ErrUnsupportedCodec, mime)
	}

	r.counts[string(t.Kind)]++
	path := filepath.Join(r.dir, fmt.Sprintf("%s-%d%s", t.Kind, r.counts[string(t.Kind)], ext))

	var (
		w   media.Writer
		err error
	)
	switch ext {
	case ".ogg":
		rate, channels := t.ClockRate, t.Channels
		if rate == 0 {
			rate = 48000
		}
		if channels == 0 {
			channels = 2
		}
		w, err = oggwriter.New(path, rate, channels)
	case ".ivf":
		w, err = ivfwriter.New(path, ivfwriter.WithCodec(canonicalVideoMime(mime)))
	case ".h264":
		w, err = h264writer.New(path)
	}
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	return w, path, nil
}

func canonicalVideoMime(mime string) string {
	for _, m := range []string{webrtc.MimeTypeVP8, webrtc.MimeTypeVP9, webrtc.MimeTypeAV1} {
		if strings.EqualFold(mime, m) {
			return m
		}
	}
	return mime
}

// Close finalizes every file. Writes after Close fail with
// ErrRecorderClosed.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	for _, w := range r.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
