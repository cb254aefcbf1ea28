// Package events is the typed publish/subscribe surface between the session
// controller and the host.
package events

import "github.com/dkeye/avatarstream/internal/core"

type Type string

const (
	StreamReady          Type = "stream_ready"
	StreamDisconnected   Type = "stream_disconnected"
	AvatarStartTalking   Type = "avatar_start_talking"
	AvatarStopTalking    Type = "avatar_stop_talking"
	AvatarTalkingMessage Type = "avatar_talking_message"
	AvatarEndMessage     Type = "avatar_end_message"
	UserTalkingMessage   Type = "user_talking_message"
	UserEndMessage       Type = "user_end_message"
	UserStart            Type = "user_start"
	UserStop             Type = "user_stop"
	UserSilence          Type = "user_silence"
)

// Known reports whether t is one of the event types the host can observe.
func Known(t Type) bool {
	switch t {
	case StreamReady, StreamDisconnected,
		AvatarStartTalking, AvatarStopTalking, AvatarTalkingMessage, AvatarEndMessage,
		UserTalkingMessage, UserEndMessage, UserStart, UserStop, UserSilence:
		return true
	}
	return false
}

// Event is a tagged value. Detail is one of the *Detail types below.
type Event struct {
	Type   Type
	Detail Detail
}

// Detail is a closed set; only this package can add variants.
type Detail interface{ isDetail() }

// StreamReadyDetail carries the composite stream once it has audio and video.
type StreamReadyDetail struct {
	Stream *core.MediaStream
}

type DisconnectedDetail struct {
	Reason string
}

// MessageDetail is a decoded data-channel or socket message.
type MessageDetail struct {
	TaskID  string
	Message string
	Raw     map[string]any
}

// SilenceDetail accompanies user_silence.
type SilenceDetail struct {
	SilenceTimes int
	CountDown    float64
	Raw          map[string]any
}

func (StreamReadyDetail) isDetail()  {}
func (DisconnectedDetail) isDetail() {}
func (MessageDetail) isDetail()      {}
func (SilenceDetail) isDetail()      {}
