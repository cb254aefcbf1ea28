package audio

import (
	"context"
	"errors"
)

// Constraints describe the capture format requested from a microphone.
type Constraints struct {
	SampleRate       int
	Channels         int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// VoiceChatConstraints is what voice chat asks for.
func VoiceChatConstraints() Constraints {
	return Constraints{
		SampleRate:       SampleRate,
		Channels:         Channels,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

var ErrSourceClosed = errors.New("audio source closed")

// Microphone acquires a capture source.
type Microphone interface {
	Open(ctx context.Context, c Constraints) (Source, error)
}

// Source yields float samples at the constrained rate and channel count.
type Source interface {
	// Read fills buf and returns the number of samples written.
	Read(buf []float32) (int, error)
	// Close stops capture. It is safe to call more than once.
	Close() error
}
