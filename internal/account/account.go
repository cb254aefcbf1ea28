// Package account covers the key-authenticated account calls: asset upload,
// remaining quota and the current user.
package account

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dkeye/avatarstream/internal/domain"
	"github.com/dkeye/avatarstream/internal/remote"
)

type Client struct {
	api    remote.Endpoint
	upload remote.Endpoint
}

type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) { c.api.BaseURL = base }
}

func WithUploadURL(base string) Option {
	return func(c *Client) { c.upload.BaseURL = base }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.api.HTTPClient = hc
		c.upload.HTTPClient = hc
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		api:    remote.Endpoint{BaseURL: remote.DefaultBaseURL, Auth: remote.AuthAPIKey, Key: apiKey},
		upload: remote.Endpoint{BaseURL: remote.DefaultUploadURL, Auth: remote.AuthAPIKey, Key: apiKey},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload sends data as a raw body with the declared content type.
func (c *Client) Upload(ctx context.Context, data []byte, contentType string) (*domain.Asset, error) {
	ct, err := domain.ParseAssetContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, contentType)
	}
	var out domain.Asset
	req := remote.Request{
		Method:      http.MethodPost,
		Path:        "/v1/asset",
		Raw:         data,
		ContentType: string(ct),
	}
	if err := remote.Do(ctx, c.upload, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemainingQuota(ctx context.Context) (*domain.Quota, error) {
	var out domain.Quota
	if err := remote.Do(ctx, c.api, remote.Request{Path: "/v2/user/remaining_quota"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*domain.UserInfo, error) {
	var out domain.UserInfo
	if err := remote.Do(ctx, c.api, remote.Request{Path: "/v1/user/me"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
