/*
Package protocol defines the event vocabulary exchanged with the messaging backend.

Every frame on the channel is a JSON envelope naming the event and carrying its payload.
This file lists the event names and the payload of every outbound and inbound event.
*/
package protocol

import (
	"encoding/json"
	"time"
)

// Outbound events.
const (
	EventAuthenticate      = "authenticate"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"
	EventMarkRead          = "mark_read"
)

// Inbound events.
const (
	EventAuthenticated       = "authenticated"
	EventNewMessage          = "new_message"
	EventMessageSent         = "message_sent"
	EventUserTyping          = "user_typing"
	EventMessagesRead        = "messages_read"
	EventMessageNotification = "message_notification"
	EventUserOnline          = "user_online"
	EventUserOffline         = "user_offline"
	EventOrderStatusChanged  = "order_status_changed"
	EventError               = "error"
)

// Envelope is the frame format of the channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals an event and its payload into a frame.
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// Decode unmarshals a frame into its envelope.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(frame, &env)
	return env, err
}

// Authenticate is sent once the transport reports connected.
type Authenticate struct {
	UserID int64 `json:"userId"`
}

// JoinConversation subscribes this socket to a conversation room.
type JoinConversation struct {
	ConversationID int64 `json:"conversationId"`
	UserID         int64 `json:"userId"`
}

// LeaveConversation unsubscribes this socket from a conversation room.
type LeaveConversation struct {
	ConversationID int64 `json:"conversationId"`
}

// SendMessage carries an optimistic send; TempID is echoed back in MessageSent.
type SendMessage struct {
	ConversationID int64        `json:"conversationId"`
	SenderID       int64        `json:"senderId"`
	Content        string       `json:"content"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	TempID         string       `json:"tempId,omitempty"`
}

// Typing is the payload of typing_start and typing_stop.
type Typing struct {
	ConversationID int64  `json:"conversationId"`
	UserID         int64  `json:"userId"`
	UserName       string `json:"userName,omitempty"`
}

// MarkRead marks a conversation as read by the user.
type MarkRead struct {
	ConversationID int64 `json:"conversationId"`
	UserID         int64 `json:"userId"`
}

// NewMessage is a message broadcast to a conversation room.
type NewMessage struct {
	ID             int64        `json:"id"`
	ConversationID int64        `json:"conversationId"`
	SenderID       int64        `json:"senderId"`
	Content        string       `json:"content"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	TempID         string       `json:"tempId,omitempty"`
}

// MessageSent acknowledges a send_message.
type MessageSent struct {
	Success   bool   `json:"success"`
	MessageID int64  `json:"messageId"`
	TempID    string `json:"tempId,omitempty"`
}

// UserTyping reports a change of another user's typing state.
type UserTyping struct {
	UserID   int64  `json:"userId"`
	UserName string `json:"userName,omitempty"`
	IsTyping bool   `json:"isTyping"`
}

// MessagesRead is the read-receipt broadcast.
type MessagesRead struct {
	ConversationID int64     `json:"conversationId"`
	ReadBy         int64     `json:"readBy"`
	ReadAt         time.Time `json:"readAt"`
}

// MessageNotification reports a message in a conversation this socket has not joined.
type MessageNotification struct {
	ConversationID int64     `json:"conversationId"`
	SenderID       int64     `json:"senderId"`
	SenderName     string    `json:"senderName"`
	SenderAvatar   string    `json:"senderAvatar,omitempty"`
	Preview        string    `json:"preview"`
	Timestamp      time.Time `json:"timestamp"`
}

// Presence is the payload of user_online and user_offline.
type Presence struct {
	UserID int64 `json:"userId"`
}

// OrderStatusChanged is the order-status broadcast.
type OrderStatusChanged struct {
	OrderID   int64     `json:"orderId"`
	Status    string    `json:"status"`
	UpdatedBy int64     `json:"updatedBy"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorPayload is an explicit error sent by the backend.
type ErrorPayload struct {
	Message string `json:"message"`
}
