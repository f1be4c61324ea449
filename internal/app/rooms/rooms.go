/*
Package rooms manages the conversation rooms this client has joined.

Membership is optimistic: join and leave are fire-and-forget signals and the backend holds
the authoritative state. The local set exists so that rooms can be re-joined after the
channel reconnects.
*/
package rooms

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"hzrealtime/internal/app/protocol"
	"hzrealtime/internal/app/session"
)

// Link is the subset of the lifecycle manager the room manager needs.
type Link interface {
	Emit(event string, payload any) bool
	Identity() session.Identity
}

// Manager tracks joined conversations.
type Manager struct {
	link   Link
	logger zerolog.Logger

	// mu protects joined and closed.
	mu     sync.RWMutex
	joined map[int64]struct{}
	closed bool
}

// NewManager creates a room Manager bound to link.
func NewManager(link Link, logger zerolog.Logger) *Manager {
	return &Manager{
		link:   link,
		logger: logger,
		joined: make(map[int64]struct{}),
	}
}

// Join subscribes to a conversation room. Joining again re-sends the signal, which the
// backend treats as a no-op, and leaves the local set unchanged.
// Ignored when there is no channel or the manager is closed.
func (m *Manager) Join(conversationID int64) bool {
	if !m.emitJoin(conversationID) {
		return false
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.joined[conversationID] = struct{}{}
	m.mu.Unlock()

	m.logger.Debug().Int64("conversation_id", conversationID).Msg("Joined conversation")
	return true
}

// Leave unsubscribes from a conversation room. Ignored when there is no channel.
func (m *Manager) Leave(conversationID int64) bool {
	sent := m.link.Emit(protocol.EventLeaveConversation, protocol.LeaveConversation{
		ConversationID: conversationID,
	})
	if !sent {
		return false
	}

	m.mu.Lock()
	delete(m.joined, conversationID)
	m.mu.Unlock()

	m.logger.Debug().Int64("conversation_id", conversationID).Msg("Left conversation")
	return true
}

// Joined returns the joined conversation IDs in ascending order.
func (m *Manager) Joined() []int64 {
	m.mu.RLock()
	ids := make([]int64, 0, len(m.joined))
	for id := range m.joined {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Rejoin re-sends a join for every conversation in the set. It returns how many were sent.
func (m *Manager) Rejoin() int {
	ids := m.Joined()

	sent := 0
	for _, id := range ids {
		if m.emitJoin(id) {
			sent++
		}
	}

	if len(ids) > 0 {
		m.logger.Info().Int("rooms", len(ids)).Int("sent", sent).Msg("Re-joined conversations after reconnect")
	}
	return sent
}

// Close forgets every membership without signalling the backend. A join whose signal
// was already in flight is not recorded afterwards. Safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	clear(m.joined)
}

func (m *Manager) emitJoin(conversationID int64) bool {
	return m.link.Emit(protocol.EventJoinConversation, protocol.JoinConversation{
		ConversationID: conversationID,
		UserID:         m.link.Identity().UserID,
	})
}
