package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/avatarstream/internal/core"
	"github.com/dkeye/avatarstream/internal/domain"
	"github.com/dkeye/avatarstream/internal/events"
)

// Options configure the transport for one session.
type Options struct {
	ICEServers []webrtc.ICEServer
	// AdaptiveStream enables NACK, RTCP reports and congestion feedback so the
	// sender can adapt quality.
	AdaptiveStream bool
	// Dynacast requests a keyframe as soon as a video track is subscribed.
	Dynacast    bool
	VideoWidth  int
	VideoHeight int
	// TrickleICE returns the answer without waiting for gathering; candidates
	// are delivered through OnICECandidate instead.
	TrickleICE bool
	// IncludeLoopback gathers loopback candidates (local testing only).
	IncludeLoopback bool
	Sink            PacketSink
}

func DefaultOptions() Options {
	return Options{
		ICEServers:     []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
		AdaptiveStream: true,
		Dynacast:       true,
		VideoWidth:     1280,
		VideoHeight:    720,
	}
}

// ICEServersFrom converts servers returned by session creation.
func ICEServersFrom(servers []domain.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}

// TransportError is a failure to negotiate or connect the transport.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return "transport " + e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

var (
	ErrNoOffer      = errors.New("no remote offer")
	ErrDisconnected = errors.New("transport disconnected")
)

// Connection binds a pion peer connection to one session. Inbound media is
// received on recv-only transceivers created from the remote offer.
type Connection struct {
	sid    core.SessionID
	opts   Options
	api    *webrtc.API
	emit   func(events.Event)
	logger zerolog.Logger

	state core.StateMachine
	agg   *TrackAggregator

	negMu  sync.Mutex
	mu     sync.Mutex
	pc     *webrtc.PeerConnection
	offer  *webrtc.SessionDescription
	answer *webrtc.SessionDescription
	onICE  func(domain.ICECandidate)

	ctx       context.Context
	cancel    context.CancelFunc
	connected chan struct{}
	connOnce  sync.Once
	pumps     conc.WaitGroup
}

var _ core.MediaConnection = (*Connection)(nil)

func NewConnection(sid core.SessionID, opts Options, emit func(events.Event)) (*Connection, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	apiOpts := []func(*webrtc.API){webrtc.WithMediaEngine(m)}
	if opts.AdaptiveStream {
		i := &interceptor.Registry{}
		if err := webrtc.RegisterDefaultInterceptors(m, i); err != nil {
			return nil, fmt.Errorf("register interceptors: %w", err)
		}
		apiOpts = append(apiOpts, webrtc.WithInterceptorRegistry(i))
	}
	if opts.IncludeLoopback {
		se := webrtc.SettingEngine{}
		se.SetIncludeLoopbackCandidate(true)
		apiOpts = append(apiOpts, webrtc.WithSettingEngine(se))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		sid:       sid,
		opts:      opts,
		api:       webrtc.NewAPI(apiOpts...),
		emit:      emit,
		logger:    log.With().Str("module", "webrtc").Str("sid", string(sid)).Logger(),
		agg:       NewTrackAggregator(sid, emit),
		ctx:       ctx,
		cancel:    cancel,
		connected: make(chan struct{}),
	}, nil
}

func (c *Connection) State() core.TransportState { return c.state.Current() }

// Stream returns the composite stream, published once it is ready.
func (c *Connection) Stream() *core.MediaStream { return c.agg.Stream() }

func (c *Connection) OnICECandidate(fn func(domain.ICECandidate)) {
	c.mu.Lock()
	c.onICE = fn
	c.mu.Unlock()
}

// Prepare applies the remote offer and builds the local answer.
func (c *Connection) Prepare(ctx context.Context, offer domain.SessionDescription) error {
	if err := c.state.Transition(core.StatePreparing); err != nil {
		return err
	}
	desc := webrtc.SessionDescription{Type: webrtc.NewSDPType(offer.Type), SDP: offer.SDP}
	c.mu.Lock()
	c.offer = &desc
	c.mu.Unlock()

	c.logger.Info().Int("width", c.opts.VideoWidth).Int("height", c.opts.VideoHeight).
		Bool("adaptive", c.opts.AdaptiveStream).Bool("dynacast", c.opts.Dynacast).Msg("preparing transport")
	return c.negotiate(ctx)
}

// Answer returns the local answer, negotiating first if Prepare did not
// complete.
func (c *Connection) Answer(ctx context.Context) (domain.SessionDescription, error) {
	c.mu.Lock()
	answer, offer := c.answer, c.offer
	c.mu.Unlock()

	if answer == nil {
		if offer == nil {
			return domain.SessionDescription{}, &TransportError{Op: "answer", Err: ErrNoOffer}
		}
		if err := c.negotiate(ctx); err != nil {
			return domain.SessionDescription{}, err
		}
		c.mu.Lock()
		answer = c.answer
		c.mu.Unlock()
	}
	return domain.SessionDescription{Type: answer.Type.String(), SDP: answer.SDP}, nil
}

// Connect waits for the peer connection to reach the connected state.
func (c *Connection) Connect(ctx context.Context) error {
	select {
	case <-c.connected:
	case <-c.ctx.Done():
		return &TransportError{Op: "connect", Err: ErrDisconnected}
	case <-ctx.Done():
		return &TransportError{Op: "connect", Err: ctx.Err()}
	}
	if err := c.state.Transition(core.StateConnected); err != nil {
		return &TransportError{Op: "connect", Err: err}
	}
	c.logger.Info().Msg("transport connected")
	return nil
}

// Disconnect closes the peer connection once and publishes
// stream_disconnected.
func (c *Connection) Disconnect(reason string) {
	if !c.state.Disconnect(reason) {
		return
	}
	c.cancel()

	c.mu.Lock()
	pc := c.pc
	c.mu.Unlock()
	if pc != nil {
		if err := pc.Close(); err != nil {
			c.logger.Error().Err(err).Msg("close error")
		}
	}
	c.pumps.Wait()
	c.logger.Info().Str("reason", reason).Msg("closed")
	c.emit(events.Event{Type: events.StreamDisconnected, Detail: events.DisconnectedDetail{Reason: reason}})
}

func (c *Connection) negotiate(ctx context.Context) error {
	c.negMu.Lock()
	defer c.negMu.Unlock()

	c.mu.Lock()
	if c.answer != nil {
		c.mu.Unlock()
		return nil
	}
	stale, offer := c.pc, *c.offer
	c.pc = nil
	c.mu.Unlock()
	if stale != nil {
		_ = stale.Close()
	}

	pc, err := c.api.NewPeerConnection(webrtc.Configuration{ICEServers: c.opts.ICEServers})
	if err != nil {
		return &TransportError{Op: "prepare", Err: err}
	}
	c.bind(pc)

	fail := func(op string, err error) error {
		_ = pc.Close()
		return &TransportError{Op: op, Err: err}
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return fail("set remote description", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fail("create answer", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return fail("set local description", err)
	}
	if !c.opts.TrickleICE {
		select {
		case <-gatherComplete:
		case <-ctx.Done():
			return fail("gather", ctx.Err())
		}
	}

	c.mu.Lock()
	c.pc = pc
	c.answer = pc.LocalDescription()
	c.mu.Unlock()
	return nil
}

func (c *Connection) bind(pc *webrtc.PeerConnection) {
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.logger.Info().Str("peer_connection_state", s.String()).Msg("Peer state")
		switch s {
		case webrtc.PeerConnectionStateConnected:
			c.connOnce.Do(func() { close(c.connected) })
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			// A peer discarded by a failed negotiation is not the session's.
			c.mu.Lock()
			current := c.pc == pc
			c.mu.Unlock()
			if current {
				go c.Disconnect("remote " + s.String())
			}
		}
	})

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		c.mu.Lock()
		fn := c.onICE
		c.mu.Unlock()
		if fn != nil {
			fn(candidateFrom(cand.ToJSON()))
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		kind := core.TrackKind(track.Kind().String())
		c.logger.Info().
			Str("kind", string(kind)).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("OnTrack received")

		t := remoteTrack{id: track.ID(), kind: kind}
		c.agg.Subscribed(t)
		if c.opts.Dynacast && kind == core.TrackKindVideo {
			pli := []rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())}}
			if err := pc.WriteRTCP(pli); err != nil {
				c.logger.Warn().Err(err).Msg("keyframe request failed")
			}
		}

		codec := track.Codec()
		info := TrackInfo{
			ID:        t.id,
			Kind:      kind,
			MimeType:  codec.MimeType,
			ClockRate: codec.ClockRate,
			Channels:  codec.Channels,
		}
		logger := c.logger.With().Str("track_id", t.id).Str("codec", codec.MimeType).Logger()
		c.pumps.Go(func() {
			pump(c.ctx, track, info, c.opts.Sink, &logger)
			c.agg.Unsubscribed(t.id)
		})
	})

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		c.logger.Debug().Str("label", dc.Label()).Msg("data channel opened")
		dc.OnMessage(func(msg webrtc.DataChannelMessage) { c.handleMessage(msg.Data) })
	})
}

// handleMessage forwards every decodable message, including types this
// package does not know.
func (c *Connection) handleMessage(data []byte) {
	ev, err := DecodeMessage(data)
	if err != nil {
		c.logger.Error().Err(err).Msg("dropping data channel message")
		return
	}
	if !events.Known(ev.Type) {
		c.logger.Debug().Str("type", string(ev.Type)).Msg("unknown data channel message type")
	}
	c.emit(ev)
}

type remoteTrack struct {
	id   string
	kind core.TrackKind
}

func (t remoteTrack) ID() string           { return t.id }
func (t remoteTrack) Kind() core.TrackKind { return t.kind }

func candidateFrom(ci webrtc.ICECandidateInit) domain.ICECandidate {
	out := domain.ICECandidate{Candidate: ci.Candidate}
	if ci.SDPMid != nil {
		out.SDPMid = *ci.SDPMid
	}
	if ci.SDPMLineIndex != nil {
		out.SDPMLineIndex = *ci.SDPMLineIndex
	}
	if ci.UsernameFragment != nil {
		out.UsernameFragment = *ci.UsernameFragment
	}
	return out
}
