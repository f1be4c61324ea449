/*
Package typing tracks which users are typing and signals the local user's own typing state.

Records are keyed by user ID only. A user typing in two conversations at once shares a
single record; the conversation a record came from is not tracked.
*/
package typing

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hzrealtime/internal/app/events"
	"hzrealtime/internal/app/protocol"
	"hzrealtime/internal/app/session"
)

// DefaultWindow is how long a typing record lives without a refresh.
const DefaultWindow = 3 * time.Second

// Link is the subset of the lifecycle manager the tracker needs.
type Link interface {
	// Emit sends an event over the channel; false if there is no channel.
	Emit(event string, payload any) bool
	Identity() session.Identity
}

// User is the typing state of one remote user.
type User struct {
	UserID    int64     `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	IsTyping  bool      `json:"isTyping"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type entry struct {
	user User
	task Task
}

// Tracker holds the typing records and their expiry tasks.
type Tracker struct {
	link      Link
	registry  *events.Registry
	scheduler Scheduler
	window    time.Duration
	logger    zerolog.Logger

	// mu protects records and closed.
	mu      sync.Mutex
	records map[int64]*entry
	closed  bool
}

// NewTracker creates a Tracker. A nil scheduler uses RealScheduler; a non-positive
// window uses DefaultWindow.
func NewTracker(link Link, registry *events.Registry, scheduler Scheduler, window time.Duration, logger zerolog.Logger) *Tracker {
	if scheduler == nil {
		scheduler = RealScheduler
	}
	if window <= 0 {
		window = DefaultWindow
	}

	return &Tracker{
		link:      link,
		registry:  registry,
		scheduler: scheduler,
		window:    window,
		logger:    logger,
		records:   make(map[int64]*entry),
	}
}

// StartTyping signals that the local user started typing in a conversation.
func (t *Tracker) StartTyping(conversationID int64) bool {
	me := t.link.Identity()
	return t.link.Emit(protocol.EventTypingStart, protocol.Typing{
		ConversationID: conversationID,
		UserID:         me.UserID,
		UserName:       me.Name(),
	})
}

// StopTyping signals that the local user stopped typing in a conversation.
func (t *Tracker) StopTyping(conversationID int64) bool {
	return t.link.Emit(protocol.EventTypingStop, protocol.Typing{
		ConversationID: conversationID,
		UserID:         t.link.Identity().UserID,
	})
}

// Apply updates the records from an inbound user_typing event.
// Ignored once the tracker is closed.
func (t *Tracker) Apply(evt protocol.UserTyping) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	existing, ok := t.records[evt.UserID]
	if ok {
		existing.task.Stop()
	}

	if !evt.IsTyping {
		if !ok {
			t.mu.Unlock()
			return
		}
		delete(t.records, evt.UserID)
		snapshot := t.snapshotLocked()
		t.mu.Unlock()

		t.logger.Debug().Int64("user_id", evt.UserID).Msg("Typing stopped")
		t.publish(snapshot)
		return
	}

	e := &entry{user: User{
		UserID:    evt.UserID,
		UserName:  evt.UserName,
		IsTyping:  true,
		ExpiresAt: t.scheduler.Now().Add(t.window),
	}}
	if e.user.UserName == "" && ok {
		e.user.UserName = existing.user.UserName
	}
	e.task = t.scheduler.AfterFunc(t.window, func() { t.expire(evt.UserID, e) })
	t.records[evt.UserID] = e
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.publish(snapshot)
}

// expire removes the record if e is still the live entry for userID.
func (t *Tracker) expire(userID int64, e *entry) {
	t.mu.Lock()
	current, ok := t.records[userID]
	if t.closed || !ok || current != e {
		t.mu.Unlock()
		return
	}
	delete(t.records, userID)
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.logger.Debug().Int64("user_id", userID).Msg("Typing record expired")
	t.publish(snapshot)
}

// Users returns the current typing users ordered by user ID.
func (t *Tracker) Users() []User {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// IsTyping reports whether userID currently has a typing record.
func (t *Tracker) IsTyping(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.records[userID]
	return ok
}

// Close cancels every expiry task and clears all records without notifying listeners.
// Later Apply calls are ignored. Tasks that already started running find their entry
// gone and do nothing. Safe to call more than once.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	for id, e := range t.records {
		e.task.Stop()
		delete(t.records, id)
	}
}

// OnChange subscribes to typing-state snapshots.
func (t *Tracker) OnChange(fn func([]User)) events.Handle {
	return events.On(t.registry, events.KindTypingState, fn)
}

func (t *Tracker) snapshotLocked() []User {
	users := make([]User, 0, len(t.records))
	for _, e := range t.records {
		users = append(users, e.user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

func (t *Tracker) publish(snapshot []User) {
	if t.registry != nil {
		t.registry.Publish(events.KindTypingState, snapshot)
	}
}
