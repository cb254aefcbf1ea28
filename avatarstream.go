// Package avatarstream is a client for real-time streaming avatar sessions.
//
// A host creates a session with a short-lived token, receives the avatar's
// audio and video over WebRTC, makes it speak, and optionally streams
// microphone audio to it over a control socket:
//
//	c := avatarstream.New(avatarstream.Options{Token: token})
//	defer c.Close()
//	c.On(avatarstream.StreamReady, func(e avatarstream.Event) { ... })
//	if _, err := c.CreateStartAvatar(ctx, avatarstream.StartAvatarRequest{AvatarID: id}); err != nil {
//		return err
//	}
//	defer c.StopAvatar(context.Background())
//	_, err := c.Speak(ctx, avatarstream.SpeakRequest{Text: "Hello"})
package avatarstream

import (
	"net/http"
	"time"

	"github.com/dkeye/avatarstream/internal/adapters/rtc"
	"github.com/dkeye/avatarstream/internal/app"
	"github.com/dkeye/avatarstream/internal/audio"
	"github.com/dkeye/avatarstream/internal/domain"
	"github.com/dkeye/avatarstream/internal/events"
	"github.com/dkeye/avatarstream/internal/remote"
	"github.com/dkeye/avatarstream/internal/streaming"
)

type (
	Controller = app.Controller

	StartAvatarRequest = domain.StartAvatarRequest
	SpeakRequest       = domain.SpeakRequest
	VoiceChatOptions   = domain.VoiceChatOptions
	VoiceSetting       = domain.VoiceSetting
	SessionDescriptor  = domain.NewSessionResponse
	TaskResult         = domain.TaskResult
	Quality            = domain.Quality
	TaskType           = domain.TaskType
	TaskMode           = domain.TaskMode

	Event              = events.Event
	EventType          = events.Type
	Listener           = events.Listener
	ListenerID         = events.ListenerID
	StreamReadyDetail  = events.StreamReadyDetail
	DisconnectedDetail = events.DisconnectedDetail
	MessageDetail      = events.MessageDetail
	SilenceDetail      = events.SilenceDetail

	Microphone = audio.Microphone

	PacketSink = rtc.PacketSink
	TrackInfo  = rtc.TrackInfo
	Recorder   = rtc.Recorder

	// Error is a service error with its numeric code.
	Error = remote.Error
)

const (
	QualityLow    = domain.QualityLow
	QualityMedium = domain.QualityMedium
	QualityHigh   = domain.QualityHigh

	TaskTypeChat   = domain.TaskTypeChat
	TaskTypeRepeat = domain.TaskTypeRepeat
	TaskModeSync   = domain.TaskModeSync
	TaskModeAsync  = domain.TaskModeAsync

	StreamReady          = events.StreamReady
	StreamDisconnected   = events.StreamDisconnected
	AvatarStartTalking   = events.AvatarStartTalking
	AvatarStopTalking    = events.AvatarStopTalking
	AvatarTalkingMessage = events.AvatarTalkingMessage
	AvatarEndMessage     = events.AvatarEndMessage
	UserTalkingMessage   = events.UserTalkingMessage
	UserEndMessage       = events.UserEndMessage
	UserStart            = events.UserStart
	UserStop             = events.UserStop
	UserSilence          = events.UserSilence
)

var (
	ErrSessionNotStarted = streaming.ErrSessionNotStarted
	ErrSessionActive     = app.ErrSessionActive
	ErrNoMicrophone      = app.ErrNoMicrophone
)

// Options configure New. Token is required; the rest default to the public
// service endpoints.
type Options struct {
	Token         string
	BaseURL       string
	SocketBaseURL string
	HTTPClient    *http.Client
	// Microphone feeds voice chat. Without one StartVoiceChat fails with
	// ErrNoMicrophone.
	Microphone Microphone
	// SettleDelay overrides the pause StartVoiceChat takes after setup.
	SettleDelay time.Duration
	TrickleICE  bool
	// PacketSink receives every remote RTP packet, for example a Recorder.
	PacketSink PacketSink
}

// New returns a controller bound to a session token.
func New(opts Options) *Controller {
	copts := []streaming.Option{streaming.WithToken(opts.Token)}
	if opts.BaseURL != "" {
		copts = append(copts, streaming.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		copts = append(copts, streaming.WithHTTPClient(opts.HTTPClient))
	}
	return app.New(app.Config{
		API:           streaming.New(copts...),
		Token:         opts.Token,
		SocketBaseURL: opts.SocketBaseURL,
		Microphone:    opts.Microphone,
		SettleDelay:   opts.SettleDelay,
		TrickleICE:    opts.TrickleICE,
		PacketSink:    opts.PacketSink,
	})
}

// NewRecorder returns a PacketSink that saves each remote track under dir.
func NewRecorder(dir string) (*Recorder, error) { return rtc.NewRecorder(dir) }

// AsError unwraps a service error from err.
func AsError(err error) (*Error, bool) { return remote.AsError(err) }
