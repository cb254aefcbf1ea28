// Package signal is the control socket used for low-latency speech tasks and
// turn-taking notifications during voice chat.
package signal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/avatarstream/internal/core"
	"github.com/dkeye/avatarstream/internal/events"
	"github.com/dkeye/avatarstream/internal/frames"
)

const (
	DefaultBaseURL = "wss://api.heygen.com"
	chatPath       = "/v1/ws/streaming.chat"
	sendBuffer     = 64
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrAlreadyOpen  = errors.New("socket already open")
)

// Params identify the session the socket belongs to.
type Params struct {
	BaseURL         string
	SessionID       core.SessionID
	Token           string
	SilenceResponse bool
	STTLanguage     string
}

// BuildURL returns the chat socket URL for p.
func BuildURL(p Params) (string, error) {
	base := p.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse socket base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = chatPath

	q := url.Values{}
	q.Set("session_id", string(p.SessionID))
	q.Set("session_token", p.Token)
	q.Set("silence_response", strconv.FormatBool(p.SilenceResponse))
	if p.STTLanguage != "" {
		q.Set("stt_language", p.STTLanguage)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Socket owns one websocket connection. After a close or a read error the
// handle is cleared and further sends are dropped silently.
type Socket struct {
	emit   func(events.Event)
	schema *frames.Schema
	dialer *websocket.Dialer
	logger zerolog.Logger

	mu     sync.RWMutex
	conn   *websocket.Conn
	send   chan core.Frame
	cancel context.CancelFunc
	pumps  conc.WaitGroup
}

var _ core.SignalConnection = (*Socket)(nil)

type Option func(*Socket)

// WithSchema lets the socket decode binary inbound frames.
func WithSchema(s *frames.Schema) Option {
	return func(sock *Socket) { sock.schema = s }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(sock *Socket) { sock.dialer = d }
}

func NewSocket(emit func(events.Event), opts ...Option) *Socket {
	s := &Socket{
		emit:   emit,
		dialer: websocket.DefaultDialer,
		logger: log.With().Str("module", "signal").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open dials the socket and returns once it is open or has failed.
func (s *Socket) Open(ctx context.Context, p Params) error {
	target, err := BuildURL(p)
	if err != nil {
		return err
	}

	s.mu.RLock()
	open := s.conn != nil
	s.mu.RUnlock()
	if open {
		return ErrAlreadyOpen
	}

	ws, _, err := s.dialer.DialContext(ctx, target, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("sid", string(p.SessionID)).Msg("socket open failed")
		return err
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	send := make(chan core.Frame, sendBuffer)

	s.mu.Lock()
	s.conn = ws
	s.send = send
	s.cancel = cancel
	s.logger = log.With().Str("module", "signal").Str("sid", string(p.SessionID)).Logger()
	s.mu.Unlock()

	s.pumps.Go(func() { s.writePump(pumpCtx, ws, send) })
	s.pumps.Go(func() { s.readPump(pumpCtx, ws) })
	s.logger.Info().Msg("socket open")
	return nil
}

func (s *Socket) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn != nil
}

// Send queues f for writing. A closed socket drops f and returns nil.
func (s *Socket) Send(f core.Frame) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}
	select {
	case s.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

// Close shuts the socket and waits for its pumps. Safe to call repeatedly.
func (s *Socket) Close() error {
	err := s.drop(websocket.CloseNormalClosure)
	s.pumps.Wait()
	return err
}

// drop clears the handle exactly once, from whichever path gets there first.
func (s *Socket) drop(code int) error {
	s.mu.Lock()
	ws, send, cancel := s.conn, s.send, s.cancel
	s.conn, s.send, s.cancel = nil, nil, nil
	s.mu.Unlock()
	if ws == nil {
		return nil
	}

	cancel()
	close(send)
	if code != 0 {
		msg := websocket.FormatCloseMessage(code, "")
		_ = ws.WriteControl(websocket.CloseMessage, msg, deadline())
	}
	s.logger.Info().Msg("socket closed")
	return ws.Close()
}
