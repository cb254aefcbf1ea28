// Package domain contains the request/response shapes exchanged with the
// streaming avatar service, without transport logic.
package domain

type (
	Quality       string
	TaskMode      string
	TaskType      string
	SessionStatus string
)

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"

	TaskModeSync  TaskMode = "sync"
	TaskModeAsync TaskMode = "async"

	// TaskTypeChat routes the text through the service's conversational
	// backend. TaskTypeRepeat makes the avatar read the text verbatim.
	TaskTypeChat   TaskType = "chat"
	TaskTypeRepeat TaskType = "repeat"

	SessionStatusNew        SessionStatus = "new"
	SessionStatusConnecting SessionStatus = "connecting"
	SessionStatusConnected  SessionStatus = "connected"
)

// SDPType values carried in SessionDescription.Type.
const (
	SDPTypeOffer  = "offer"
	SDPTypeAnswer = "answer"
)

type VoiceSetting struct {
	VoiceID string  `json:"voice_id,omitempty"`
	Rate    float64 `json:"rate,omitempty"`
	Emotion string  `json:"emotion,omitempty"`
}

// SessionDescription is the signaling payload: a transport-protocol body plus
// its directional type tag.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type ICEServer struct {
	URLs           []string `json:"urls"`
	Username       string   `json:"username,omitempty"`
	Credential     string   `json:"credential,omitempty"`
	CredentialType string   `json:"credentialType,omitempty"`
}

type NewSessionRequest struct {
	Quality            Quality       `json:"quality"`
	AvatarID           string        `json:"avatar_id,omitempty"`
	Voice              *VoiceSetting `json:"voice,omitempty"`
	VideoEncoding      string        `json:"video_encoding,omitempty"`
	KnowledgeBase      string        `json:"knowledge_base,omitempty"`
	KnowledgeBaseID    string        `json:"knowledge_base_id,omitempty"`
	DisableIdleTimeout bool          `json:"disable_idle_timeout,omitempty"`
}

type NewSessionResponse struct {
	SessionID            string             `json:"session_id"`
	SDP                  SessionDescription `json:"sdp"`
	ICEServers           []ICEServer        `json:"ice_servers2,omitempty"`
	AccessToken          string             `json:"access_token,omitempty"`
	URL                  string             `json:"url,omitempty"`
	IsPaid               bool               `json:"is_paid,omitempty"`
	SessionDurationLimit int                `json:"session_duration_limit,omitempty"`
}

type StartSessionRequest struct {
	SessionID string              `json:"session_id"`
	SDP       *SessionDescription `json:"sdp,omitempty"`
}

type StartSessionResponse struct {
	Status string `json:"status"`
}

type SessionInfo struct {
	SessionID string        `json:"session_id"`
	Status    SessionStatus `json:"status"`
	CreatedAt int64         `json:"created_at"`
}

type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

type ICECandidate struct {
	Candidate        string `json:"candidate"`
	SDPMid           string `json:"sdpMid"`
	SDPMLineIndex    uint16 `json:"sdpMLineIndex"`
	UsernameFragment string `json:"usernameFragment,omitempty"`
}

type SubmitICERequest struct {
	SessionID string       `json:"session_id"`
	Candidate ICECandidate `json:"candidate"`
}

type TaskRequest struct {
	SessionID string   `json:"session_id"`
	Text      string   `json:"text"`
	TaskMode  TaskMode `json:"task_mode,omitempty"`
	TaskType  TaskType `json:"task_type,omitempty"`
}

type TaskResult struct {
	TaskID     string  `json:"task_id"`
	DurationMs float64 `json:"duration_ms"`
}

type SessionToken struct {
	Token string `json:"token"`
}

type StreamingAvatar struct {
	AvatarID  string `json:"avatar_id"`
	CreatedAt int64  `json:"created_at"`
	IsPublic  bool   `json:"is_public"`
	Status    string `json:"status"`
}
