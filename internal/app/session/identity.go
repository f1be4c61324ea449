/*
Package session contains the identity of the user on whose behalf the realtime
client runs.

The channel has no notion of identity until authentication completes; the
identity is supplied when the lifecycle manager is constructed and discarded
when it is closed.
*/
package session

import (
	"fmt"
	"strings"
)

// Identity is the externally supplied identity of the active user session.
type Identity struct {
	// UserID is the backend identifier sent with authenticate, join and typing signals.
	UserID int64 `json:"userId"`

	// DisplayName is shown to other participants in typing indicators.
	DisplayName string `json:"displayName"`
}

// Valid reports whether the identity can be used to open a session.
func (i Identity) Valid() bool {
	return i.UserID > 0
}

// Name returns the display name, falling back to a generated one.
func (i Identity) Name() string {
	if name := strings.TrimSpace(i.DisplayName); name != "" {
		return name
	}
	return fmt.Sprintf("User_%d", i.UserID)
}
