package core

// SessionID is the server-assigned identifier of a streaming session.
type SessionID string

func (s SessionID) String() string { return string(s) }

// Empty reports whether no session has been created yet.
func (s SessionID) Empty() bool { return s == "" }
