// Package streaming maps the streaming session lifecycle onto typed remote
// calls. It keeps no session state of its own.
package streaming

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/avatarstream/internal/domain"
	"github.com/dkeye/avatarstream/internal/remote"
)

const (
	pathNew         = "/v1/streaming.new"
	pathStart       = "/v1/streaming.start"
	pathICE         = "/v1/streaming.ice"
	pathTask        = "/v1/streaming.task"
	pathInterrupt   = "/v1/streaming.interrupt"
	pathStop        = "/v1/streaming.stop"
	pathList        = "/v1/streaming.list"
	pathCreateToken = "/v1/streaming.create_token"
	pathAvatarList  = "/v1/streaming/avatar.list"
)

// ErrSessionNotStarted is returned, without any network call, by session
// scoped operations invoked before a session exists.
var ErrSessionNotStarted = errors.New("Session not started")

// PreconditionError names the operation that was refused.
type PreconditionError struct {
	Op string
}

func (e *PreconditionError) Error() string {
	return e.Op + ": " + ErrSessionNotStarted.Error()
}

func (e *PreconditionError) Unwrap() error { return ErrSessionNotStarted }

// RequireSession returns a *PreconditionError for op when sessionID is empty.
func RequireSession(op, sessionID string) error {
	if sessionID == "" {
		return &PreconditionError{Op: op}
	}
	return nil
}

// Client issues lifecycle calls. Session operations authenticate with the
// bearer token; token issuance and account listings use the API key.
type Client struct {
	keyed  remote.Endpoint
	bearer remote.Endpoint
}

type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.keyed.BaseURL = base
		c.bearer.BaseURL = base
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.keyed.HTTPClient = hc
		c.bearer.HTTPClient = hc
	}
}

func WithAPIKey(key string) Option {
	return func(c *Client) { c.keyed.Key = key }
}

// WithToken sets the ephemeral session token used for bearer auth.
func WithToken(token string) Option {
	return func(c *Client) { c.bearer.Key = token }
}

func New(opts ...Option) *Client {
	c := &Client{
		keyed:  remote.Endpoint{BaseURL: remote.DefaultBaseURL, Auth: remote.AuthAPIKey},
		bearer: remote.Endpoint{BaseURL: remote.DefaultBaseURL, Auth: remote.AuthBearer},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithSessionToken returns a copy of c that authenticates session operations
// with token.
func (c *Client) WithSessionToken(token string) *Client {
	cp := *c
	cp.bearer.Key = token
	return &cp
}

// Token returns the bearer credential in use.
func (c *Client) Token() string { return c.bearer.Key }

func (c *Client) Create(ctx context.Context, req domain.NewSessionRequest) (*domain.NewSessionResponse, error) {
	var out domain.NewSessionResponse
	if err := c.post(ctx, c.bearer, pathNew, req, &out); err != nil {
		return nil, err
	}
	log.Debug().Str("module", "streaming").Str("sid", out.SessionID).Msg("session created")
	return &out, nil
}

func (c *Client) Start(ctx context.Context, req domain.StartSessionRequest) (*domain.StartSessionResponse, error) {
	if err := RequireSession("start", req.SessionID); err != nil {
		return nil, err
	}
	var out domain.StartSessionResponse
	if err := c.post(ctx, c.bearer, pathStart, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitICE forwards a locally gathered candidate when trickle ICE is used.
func (c *Client) SubmitICE(ctx context.Context, req domain.SubmitICERequest) error {
	if err := RequireSession("ice", req.SessionID); err != nil {
		return err
	}
	return c.post(ctx, c.bearer, pathICE, req, nil)
}

func (c *Client) SendTask(ctx context.Context, req domain.TaskRequest) (*domain.TaskResult, error) {
	if err := RequireSession("task", req.SessionID); err != nil {
		return nil, err
	}
	var out domain.TaskResult
	if err := c.post(ctx, c.bearer, pathTask, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Interrupt(ctx context.Context, sessionID string) error {
	if err := RequireSession("interrupt", sessionID); err != nil {
		return err
	}
	return c.post(ctx, c.bearer, pathInterrupt, sessionRef{SessionID: sessionID}, nil)
}

// Close ends the session server-side.
func (c *Client) Close(ctx context.Context, sessionID string) error {
	if err := RequireSession("stop", sessionID); err != nil {
		return err
	}
	return c.post(ctx, c.bearer, pathStop, sessionRef{SessionID: sessionID}, nil)
}

func (c *Client) List(ctx context.Context) ([]domain.SessionInfo, error) {
	var out domain.ListSessionsResponse
	err := remote.Do(ctx, c.keyed, remote.Request{Method: http.MethodGet, Path: pathList}, &out)
	if err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// CreateToken issues an ephemeral token for bearer-authenticated session
// calls. It always uses the API key.
func (c *Client) CreateToken(ctx context.Context) (string, error) {
	var out domain.SessionToken
	if err := c.post(ctx, c.keyed, pathCreateToken, nil, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *Client) ListAvatars(ctx context.Context) ([]domain.StreamingAvatar, error) {
	var out []domain.StreamingAvatar
	err := remote.Do(ctx, c.keyed, remote.Request{Method: http.MethodGet, Path: pathAvatarList}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type sessionRef struct {
	SessionID string `json:"session_id"`
}

func (c *Client) post(ctx context.Context, ep remote.Endpoint, path string, body, out any) error {
	return remote.Do(ctx, ep, remote.Request{Method: http.MethodPost, Path: path, Body: body}, out)
}
