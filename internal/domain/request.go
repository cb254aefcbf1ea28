package domain

import (
	"github.com/go-playground/validator/v10"
)

// StartAvatarRequest is what a host passes to start a streaming avatar.
type StartAvatarRequest struct {
	Quality            Quality `validate:"omitempty,oneof=low medium high"`
	AvatarID           string  `validate:"required"`
	Voice              VoiceSetting
	KnowledgeID        string
	KnowledgeBase      string
	Language           string
	DisableIdleTimeout bool
}

// SpeakRequest asks the avatar to speak. Empty TaskType/TaskMode default to
// chat/async.
type SpeakRequest struct {
	Text     string   `validate:"required"`
	TaskType TaskType `validate:"omitempty,oneof=chat repeat"`
	TaskMode TaskMode `validate:"omitempty,oneof=sync async"`
}

// WithDefaults fills the task type and mode.
func (r SpeakRequest) WithDefaults() SpeakRequest {
	if r.TaskType == "" {
		r.TaskType = TaskTypeChat
	}
	if r.TaskMode == "" {
		r.TaskMode = TaskModeAsync
	}
	return r
}

type VoiceChatOptions struct {
	// UseSilencePrompt asks the service to prompt the user after silence.
	UseSilencePrompt bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags on host requests.
func Validate(v any) error {
	return validate.Struct(v)
}
