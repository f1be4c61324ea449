/*
Package channel maintains the bidirectional connection to the messaging backend.

A Channel dials one of its transports in fallback order, pumps frames in both directions
and reconnects with a fixed delay after the connection drops.
*/
package channel

import (
	"context"
	"fmt"
	"net/http"
)

// Conn is an established transport connection carrying text frames.
//
// ReadMessage is only called from the read pump and WriteMessage/WritePing only from the
// write pump. Close may be called concurrently with both.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(frame []byte) error
	WritePing() error
	Close() error
}

// Transport opens connections of one kind.
type Transport interface {
	Name() string
	Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error)
}

// Transports maps a transport name to its implementation.
type Transports map[string]Transport

// DefaultTransports returns the built-in transports.
func DefaultTransports() Transports {
	ws := NewWebSocketTransport()
	return Transports{ws.Name(): ws}
}

// Select resolves names into transports, preserving the fallback order.
func (t Transports) Select(names []string) ([]Transport, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no transports configured")
	}

	out := make([]Transport, 0, len(names))
	for _, name := range names {
		tr, ok := t[name]
		if !ok {
			return nil, fmt.Errorf("transport %q is not available", name)
		}
		out = append(out, tr)
	}
	return out, nil
}
