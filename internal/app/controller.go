// Package app holds the session controller: the single handle a host uses to
// start an avatar session, talk to it and tear it down.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/avatarstream/internal/adapters/rtc"
	"github.com/dkeye/avatarstream/internal/adapters/signal"
	"github.com/dkeye/avatarstream/internal/audio"
	"github.com/dkeye/avatarstream/internal/core"
	"github.com/dkeye/avatarstream/internal/domain"
	"github.com/dkeye/avatarstream/internal/events"
	"github.com/dkeye/avatarstream/internal/frames"
)

// DefaultSettleDelay is how long StartVoiceChat waits after setup. Transport
// readiness and socket readiness are not synchronized with each other.
const DefaultSettleDelay = 2 * time.Second

var (
	ErrSessionActive = errors.New("a session is already active")
	ErrNoMicrophone  = errors.New("no microphone configured")
)

//go:generate mockgen -destination=mock_session_api_test.go -package=app . SessionAPI

// SessionAPI is the part of the lifecycle client the controller drives.
type SessionAPI interface {
	Create(ctx context.Context, req domain.NewSessionRequest) (*domain.NewSessionResponse, error)
	Start(ctx context.Context, req domain.StartSessionRequest) (*domain.StartSessionResponse, error)
	SubmitICE(ctx context.Context, req domain.SubmitICERequest) error
	SendTask(ctx context.Context, req domain.TaskRequest) (*domain.TaskResult, error)
	Interrupt(ctx context.Context, sessionID string) error
	Close(ctx context.Context, sessionID string) error
}

// ControlSocket is the voice chat socket.
type ControlSocket interface {
	core.SignalConnection
	Open(ctx context.Context, p signal.Params) error
}

type (
	TransportFactory func(sid core.SessionID, ice []domain.ICEServer, emit func(events.Event)) (core.MediaConnection, error)
	SocketFactory    func(emit func(events.Event), schema *frames.Schema) ControlSocket
)

type Config struct {
	API SessionAPI
	// Token is the session credential passed to the control socket.
	Token         string
	SocketBaseURL string
	Microphone    audio.Microphone
	SettleDelay   time.Duration
	TrickleICE    bool
	// PacketSink receives remote RTP when the default transport is used.
	PacketSink rtc.PacketSink

	Transport  TransportFactory
	Socket     SocketFactory
	LoadSchema func() (*frames.Schema, error)
}

// DefaultTransport builds a pion connection with adaptive stream, dynacast
// and a 720p target.
func DefaultTransport(opts rtc.Options) TransportFactory {
	return func(sid core.SessionID, ice []domain.ICEServer, emit func(events.Event)) (core.MediaConnection, error) {
		o := opts
		if len(ice) > 0 {
			o.ICEServers = rtc.ICEServersFrom(ice)
		}
		return rtc.NewConnection(sid, o, emit)
	}
}

func DefaultSocket(emit func(events.Event), schema *frames.Schema) ControlSocket {
	return signal.NewSocket(emit, signal.WithSchema(schema))
}

// Controller owns one session at a time together with its transport,
// control socket and microphone pipeline.
type Controller struct {
	id     uuid.UUID
	cfg    Config
	bus    *events.Bus
	logger zerolog.Logger

	mu        sync.Mutex
	sessionID core.SessionID
	offer     domain.SessionDescription
	language  string
	transport core.MediaConnection
	socket    ControlSocket
	schema    *frames.Schema
	source    audio.Source
	processor *audio.Processor
}

func New(cfg Config) *Controller {
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.Transport == nil {
		opts := rtc.DefaultOptions()
		opts.TrickleICE = cfg.TrickleICE
		opts.Sink = cfg.PacketSink
		cfg.Transport = DefaultTransport(opts)
	}
	if cfg.Socket == nil {
		cfg.Socket = DefaultSocket
	}
	if cfg.LoadSchema == nil {
		cfg.LoadSchema = frames.Load
	}
	id := uuid.New()
	return &Controller{
		id:     id,
		cfg:    cfg,
		bus:    events.NewBus(),
		logger: log.With().Str("module", "controller").Str("instance", id.String()).Logger(),
	}
}

func (c *Controller) ID() uuid.UUID { return c.id }

// SessionID returns the current session, empty before CreateStartAvatar.
func (c *Controller) SessionID() core.SessionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) On(t events.Type, fn events.Listener) events.ListenerID {
	return c.bus.On(t, fn)
}

func (c *Controller) Off(t events.Type, id events.ListenerID) {
	c.bus.Off(t, id)
}

// Close releases the event dispatchers. Call it after StopAvatar.
func (c *Controller) Close() {
	c.bus.Close()
}

func (c *Controller) emit(e events.Event) {
	c.bus.Emit(e)
}

// CreateStartAvatar creates a session, negotiates the transport and confirms
// the start. Quality defaults to medium. A failed transport preparation is
// logged and negotiation is retried while building the answer.
//
// A create failure leaves nothing behind. If answer, start or connect fails
// afterwards, the session and its peer connection stay held until StopAvatar
// is called, and a new CreateStartAvatar returns ErrSessionActive until then.
func (c *Controller) CreateStartAvatar(ctx context.Context, req domain.StartAvatarRequest) (*domain.NewSessionResponse, error) {
	if err := domain.Validate(req); err != nil {
		return nil, fmt.Errorf("invalid start request: %w", err)
	}
	c.mu.Lock()
	active := c.sessionID != ""
	c.mu.Unlock()
	if active {
		return nil, ErrSessionActive
	}

	quality := req.Quality
	if quality == "" {
		quality = domain.QualityMedium
	}
	newReq := domain.NewSessionRequest{
		Quality:            quality,
		AvatarID:           req.AvatarID,
		KnowledgeBase:      req.KnowledgeBase,
		KnowledgeBaseID:    req.KnowledgeID,
		DisableIdleTimeout: req.DisableIdleTimeout,
	}
	if req.Voice != (domain.VoiceSetting{}) {
		voice := req.Voice
		newReq.Voice = &voice
	}

	created, err := c.cfg.API.Create(ctx, newReq)
	if err != nil {
		return nil, err
	}
	sid := core.SessionID(created.SessionID)
	logger := c.logger.With().Str("sid", string(sid)).Logger()

	c.mu.Lock()
	c.sessionID = sid
	c.offer = created.SDP
	c.language = req.Language
	c.mu.Unlock()

	tr, err := c.cfg.Transport(sid, created.ICEServers, c.emit)
	if err != nil {
		return nil, err
	}
	if c.cfg.TrickleICE {
		tr.OnICECandidate(func(cand domain.ICECandidate) { c.submitICE(sid, cand) })
	}
	c.mu.Lock()
	c.transport = tr
	c.mu.Unlock()

	if err := tr.Prepare(ctx, created.SDP); err != nil {
		logger.Warn().Err(err).Msg("transport preparation failed, continuing")
	}

	answer, err := tr.Answer(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := c.cfg.API.Start(ctx, domain.StartSessionRequest{SessionID: string(sid), SDP: &answer}); err != nil {
		return nil, err
	}
	if err := tr.Connect(ctx); err != nil {
		return nil, err
	}
	logger.Info().Msg("avatar started")
	return created, nil
}

func (c *Controller) submitICE(sid core.SessionID, cand domain.ICECandidate) {
	go func() {
		err := c.cfg.API.SubmitICE(context.Background(), domain.SubmitICERequest{SessionID: string(sid), Candidate: cand})
		if err != nil {
			c.logger.Warn().Err(err).Str("sid", string(sid)).Msg("submit ice candidate")
		}
	}()
}

// Speak sends text to the avatar. Chat tasks in async mode go over the
// control socket when it is open; everything else uses the task endpoint.
// The socket path returns a nil result.
func (c *Controller) Speak(ctx context.Context, req domain.SpeakRequest) (*domain.TaskResult, error) {
	c.mu.Lock()
	sid, sock, schema := c.sessionID, c.socket, c.schema
	c.mu.Unlock()
	if err := requireSession("speak", sid); err != nil {
		return nil, err
	}

	req = req.WithDefaults()
	if err := domain.Validate(req); err != nil {
		return nil, fmt.Errorf("invalid speak request: %w", err)
	}

	if req.TaskType == domain.TaskTypeChat && req.TaskMode == domain.TaskModeAsync &&
		sock != nil && sock.IsOpen() && schema != nil {
		frame, err := schema.EncodeText(req.Text)
		if err != nil {
			return nil, err
		}
		if err := sock.Send(frame); err != nil {
			return nil, fmt.Errorf("send text frame: %w", err)
		}
		return nil, nil
	}

	return c.cfg.API.SendTask(ctx, domain.TaskRequest{
		SessionID: string(sid),
		Text:      req.Text,
		TaskMode:  req.TaskMode,
		TaskType:  req.TaskType,
	})
}

func (c *Controller) Interrupt(ctx context.Context) error {
	sid := c.SessionID()
	if err := requireSession("interrupt", sid); err != nil {
		return err
	}
	return c.cfg.API.Interrupt(ctx, string(sid))
}

// StartListening re-issues the start call for the current session with the
// local answer.
func (c *Controller) StartListening(ctx context.Context) error {
	c.mu.Lock()
	sid, tr := c.sessionID, c.transport
	c.mu.Unlock()
	if err := requireSession("startListening", sid); err != nil {
		return err
	}
	req := domain.StartSessionRequest{SessionID: string(sid)}
	if tr != nil {
		answer, err := tr.Answer(ctx)
		if err != nil {
			return err
		}
		req.SDP = &answer
	}
	_, err := c.cfg.API.Start(ctx, req)
	return err
}

// StopListening closes the session server-side.
func (c *Controller) StopListening(ctx context.Context) error {
	sid := c.SessionID()
	if err := requireSession("stopListening", sid); err != nil {
		return err
	}
	return c.cfg.API.Close(ctx, string(sid))
}

// StopAvatar tears voice chat down, then interrupts and closes the session
// and disconnects the transport. Failures are logged; local state is always
// cleared so a new session can be started.
func (c *Controller) StopAvatar(ctx context.Context) {
	c.CloseVoiceChat()

	c.mu.Lock()
	sid, tr := c.sessionID, c.transport
	c.sessionID, c.transport = "", nil
	c.offer, c.language = domain.SessionDescription{}, ""
	c.mu.Unlock()

	logger := c.logger.With().Str("sid", string(sid)).Logger()
	if sid != "" {
		if err := c.cfg.API.Interrupt(ctx, string(sid)); err != nil {
			logger.Warn().Err(err).Msg("interrupt on stop")
		}
		if err := c.cfg.API.Close(ctx, string(sid)); err != nil {
			logger.Warn().Err(err).Msg("close session on stop")
		}
	}
	if tr != nil {
		guard(logger, "disconnect transport", func() error {
			tr.Disconnect("stopped")
			return nil
		})
	}
	logger.Info().Msg("avatar stopped")
}
