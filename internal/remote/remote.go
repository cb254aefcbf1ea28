// Package remote executes authenticated calls against the avatar service and
// normalizes both of its response envelopes into one result/error contract.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
)

const (
	DefaultBaseURL   = "https://api.heygen.com"
	DefaultUploadURL = "https://upload.heygen.com"

	// successCode marks a successful V1 envelope.
	successCode = 100
)

// AuthKind selects which header carries the credential.
type AuthKind int

const (
	// AuthAPIKey sends the static key in X-Api-Key.
	AuthAPIKey AuthKind = iota
	// AuthBearer sends an ephemeral session token as a bearer credential.
	AuthBearer
)

// Endpoint is the value object every call is parameterized by.
type Endpoint struct {
	BaseURL    string
	Auth       AuthKind
	Key        string
	HTTPClient *http.Client
}

// WithAuth returns a copy of e using a different credential.
func (e Endpoint) WithAuth(kind AuthKind, key string) Endpoint {
	e.Auth = kind
	e.Key = key
	return e
}

// WithBaseURL returns a copy of e pointed at another surface.
func (e Endpoint) WithBaseURL(base string) Endpoint {
	e.BaseURL = base
	return e
}

func (e Endpoint) client() *http.Client {
	if e.HTTPClient != nil {
		return e.HTTPClient
	}
	return http.DefaultClient
}

// Request describes one call. Raw, when set, is sent as-is with ContentType
// instead of a JSON encoding of Body.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        any
	Raw         []byte
	ContentType string
}

// Do performs req against ep and decodes the envelope's data into out.
// Network failures are returned unchanged; envelope and status failures are
// returned as *Error.
func Do(ctx context.Context, ep Endpoint, req Request, out any) error {
	httpReq, err := newHTTPRequest(ctx, ep, req)
	if err != nil {
		return err
	}

	resp, err := ep.client().Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	return decodeEnvelope(resp.StatusCode, body, out)
}

func newHTTPRequest(ctx context.Context, ep Endpoint, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := strings.TrimRight(ep.BaseURL, "/") + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Raw != nil:
		body = bytes.NewReader(req.Raw)
		contentType = req.ContentType
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	switch ep.Auth {
	case AuthBearer:
		httpReq.Header.Set("Authorization", "Bearer "+ep.Key)
	default:
		httpReq.Header.Set("X-Api-Key", ep.Key)
	}
	return httpReq, nil
}
