package core

import (
	"context"

	"github.com/dkeye/avatarstream/internal/domain"
)

type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

// Track is an inbound media track as seen by the host.
type Track interface {
	ID() string
	Kind() TrackKind
}

// MediaConnection is the real-time transport bound to one session.
// Implementations own their engine resources and release them on Disconnect.
type MediaConnection interface {
	// Prepare pre-warms the connection with the remote offer. Callers may
	// ignore its error: Answer negotiates again when preparation failed.
	Prepare(ctx context.Context, offer domain.SessionDescription) error
	// Answer returns the local answer to send with the start call.
	Answer(ctx context.Context) (domain.SessionDescription, error)
	// Connect blocks until the transport is connected or fails.
	Connect(ctx context.Context) error
	// Disconnect tears the transport down. It is idempotent.
	Disconnect(reason string)
	State() TransportState
	// OnICECandidate sets a callback for locally gathered candidates.
	OnICECandidate(func(domain.ICECandidate))
}
