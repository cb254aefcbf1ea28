package signal

import "errors"

var (
	errNoEventType    = errors.New("socket message has no event_type")
	errNoSchema       = errors.New("binary frame without schema")
	errUnhandledFrame = errors.New("unhandled frame variant")
)
