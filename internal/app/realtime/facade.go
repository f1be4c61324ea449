package realtime

import (
	"hzrealtime/internal/app/events"
	"hzrealtime/internal/app/messaging"
	"hzrealtime/internal/app/protocol"
	"hzrealtime/internal/app/typing"
	"hzrealtime/internal/pkg/errs"
)

// Join subscribes to a conversation room. No-op without a channel.
func (m *Manager) Join(conversationID int64) bool {
	return m.rooms.Join(conversationID)
}

// Leave unsubscribes from a conversation room. No-op without a channel.
func (m *Manager) Leave(conversationID int64) bool {
	return m.rooms.Leave(conversationID)
}

// Joined returns the joined conversations in ascending order.
func (m *Manager) Joined() []int64 {
	return m.rooms.Joined()
}

// StartTyping signals typing in a conversation.
func (m *Manager) StartTyping(conversationID int64) bool {
	return m.typing.StartTyping(conversationID)
}

// StopTyping signals the end of typing in a conversation.
func (m *Manager) StopTyping(conversationID int64) bool {
	return m.typing.StopTyping(conversationID)
}

// TypingUsers returns the users currently typing.
func (m *Manager) TypingUsers() []typing.User {
	return m.typing.Users()
}

// SendMessage emits an optimistic send. The acknowledgement arrives through OnMessageSent
// and echoes tempID.
func (m *Manager) SendMessage(conversationID int64, content string, attachments []protocol.Attachment, tempID string) bool {
	return m.messages.Send(conversationID, content, attachments, tempID)
}

// SubmitMessage is SendMessage reporting why a send was refused.
func (m *Manager) SubmitMessage(conversationID int64, content string, attachments []protocol.Attachment, tempID string) *errs.CustomError {
	return m.messages.Submit(conversationID, content, attachments, tempID)
}

// MarkRead marks a conversation as read.
func (m *Manager) MarkRead(conversationID int64) bool {
	return m.messages.MarkRead(conversationID)
}

// Pending returns the sends still awaiting acknowledgement.
func (m *Manager) Pending() []messaging.Pending {
	return m.messages.Pending()
}

// Forget drops an unacknowledged send, for callers applying their own timeout.
func (m *Manager) Forget(tempID string) bool {
	return m.messages.Forget(tempID)
}

// Status is a point-in-time view of the session.
type Status struct {
	State         State         `json:"state"`
	UserID        int64         `json:"userId"`
	Connected     bool          `json:"connected"`
	Authenticated bool          `json:"authenticated"`
	Joined        []int64       `json:"joined"`
	Pending       int           `json:"pending"`
	Typing        []typing.User `json:"typing"`
}

// Status returns the current session status.
func (m *Manager) Status() Status {
	state := m.State()
	return Status{
		State:         state,
		UserID:        m.Identity().UserID,
		Connected:     state.Live(),
		Authenticated: state == StateAuthenticated,
		Joined:        m.Joined(),
		Pending:       len(m.Pending()),
		Typing:        m.TypingUsers(),
	}
}

// Subscribe registers a raw listener for an event kind. After Close it returns a no-op handle.
func (m *Manager) Subscribe(kind string, fn func(any)) events.Handle {
	return m.registry.Subscribe(kind, fn)
}

// OnStateChange subscribes to lifecycle state changes.
func (m *Manager) OnStateChange(fn func(State)) events.Handle {
	return events.On(m.registry, events.KindState, fn)
}

// OnNewMessage subscribes to messages broadcast to joined conversations.
func (m *Manager) OnNewMessage(fn func(protocol.NewMessage)) events.Handle {
	return events.On(m.registry, protocol.EventNewMessage, fn)
}

// OnMessageSent subscribes to send acknowledgements.
func (m *Manager) OnMessageSent(fn func(protocol.MessageSent)) events.Handle {
	return events.On(m.registry, protocol.EventMessageSent, fn)
}

// OnMessagesRead subscribes to read receipts.
func (m *Manager) OnMessagesRead(fn func(protocol.MessagesRead)) events.Handle {
	return events.On(m.registry, protocol.EventMessagesRead, fn)
}

// OnUserTyping subscribes to raw typing events.
func (m *Manager) OnUserTyping(fn func(protocol.UserTyping)) events.Handle {
	return events.On(m.registry, protocol.EventUserTyping, fn)
}

// OnTypingChange subscribes to typing-state snapshots, including local expiry.
func (m *Manager) OnTypingChange(fn func([]typing.User)) events.Handle {
	return m.typing.OnChange(fn)
}

func (m *Manager) OnUserOnline(fn func(protocol.Presence)) events.Handle {
	return events.On(m.registry, protocol.EventUserOnline, fn)
}

func (m *Manager) OnUserOffline(fn func(protocol.Presence)) events.Handle {
	return events.On(m.registry, protocol.EventUserOffline, fn)
}

// OnOrderStatusChanged subscribes to order-status broadcasts.
func (m *Manager) OnOrderStatusChanged(fn func(protocol.OrderStatusChanged)) events.Handle {
	return events.On(m.registry, protocol.EventOrderStatusChanged, fn)
}

// OnNotification subscribes to out-of-room message notifications.
func (m *Manager) OnNotification(fn func(protocol.MessageNotification)) events.Handle {
	return events.On(m.registry, protocol.EventMessageNotification, fn)
}

// OnError subscribes to backend errors, the authentication watchdog and reconnect exhaustion.
func (m *Manager) OnError(fn func(*errs.CustomError)) events.Handle {
	return events.On(m.registry, protocol.EventError, fn)
}
