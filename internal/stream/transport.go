package stream

import (
	"context"
	"errors"
)

// Dialer opens a transport session. Dial must honour ctx cancellation and
// deadline; the manager bounds it with the handshake timeout.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// Session is an established transport connection.
type Session interface {
	// Subscribe starts delivery for topic. The channel carries message bodies
	// until a single terminal Message with Err set, after which it is closed.
	Subscribe(topic string) (<-chan Message, error)
	// Close tears the session down. It is safe to call more than once.
	Close() error
}

// Message is either a frame body or a terminal error.
type Message struct {
	Body []byte
	Err  error
}

// ErrHeartbeatTimeout is delivered when the peer stops sending heartbeats.
var ErrHeartbeatTimeout = errors.New("heartbeat timeout")

// ErrClosed is delivered when the peer closes the connection.
var ErrClosed = errors.New("connection closed")

// ProtocolError is an explicit ERROR frame sent by the peer.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return "protocol error"
	}
	return "protocol error: " + e.Message
}
