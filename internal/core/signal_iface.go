package core

// Frame is a serialized binary frame.
type Frame []byte

// SignalConnection is the control socket as seen by the controller.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// Send writes f if the socket is open and silently drops it otherwise.
	Send(f Frame) error
	IsOpen() bool
	Close() error
}
