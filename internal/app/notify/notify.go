/*
Package notify relays presence changes and turns message notifications into user alerts.

A message_notification arrives for conversations this socket has not joined. Every one is
both raised as an Alert and forwarded to subscribers unchanged; nothing is suppressed for
the conversation the user currently has open.
*/
package notify

import (
	"github.com/rs/zerolog"

	"hzrealtime/internal/app/events"
	"hzrealtime/internal/app/protocol"
)

// OpenActionLabel is the label of the action attached to every alert.
const OpenActionLabel = "Open"

// Action is the follow-up offered by an alert.
type Action struct {
	Label          string `json:"label"`
	ConversationID int64  `json:"conversationId"`
}

// Alert is a user-facing notification.
type Alert struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Avatar string `json:"avatar,omitempty"`
	Action Action `json:"action"`
}

// Alerter presents alerts to the user.
type Alerter interface {
	Alert(Alert)
}

// AlerterFunc adapts a function to the Alerter interface.
type AlerterFunc func(Alert)

// Alert calls f(a).
func (f AlerterFunc) Alert(a Alert) { f(a) }

// LogAlerter writes alerts to a logger. Used when no interactive surface is attached.
type LogAlerter struct {
	Logger zerolog.Logger
}

// Alert logs a.
func (l LogAlerter) Alert(a Alert) {
	l.Logger.Info().
		Str("title", a.Title).
		Str("body", a.Body).
		Int64("conversation_id", a.Action.ConversationID).
		Msg("New message notification")
}

// Dispatcher forwards presence and notification events to the registry.
type Dispatcher struct {
	registry *events.Registry
	alerter  Alerter
	logger   zerolog.Logger
}

// NewDispatcher creates a Dispatcher. A nil alerter disables alerts but not forwarding.
func NewDispatcher(registry *events.Registry, alerter Alerter, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		alerter:  alerter,
		logger:   logger,
	}
}

// Online relays a user_online event.
func (d *Dispatcher) Online(evt protocol.Presence) {
	d.registry.Publish(protocol.EventUserOnline, evt)
}

// Offline relays a user_offline event.
func (d *Dispatcher) Offline(evt protocol.Presence) {
	d.registry.Publish(protocol.EventUserOffline, evt)
}

// Notify raises an alert for evt and publishes the raw payload.
func (d *Dispatcher) Notify(evt protocol.MessageNotification) {
	if d.alerter != nil {
		d.alert(AlertFor(evt))
	}
	d.registry.Publish(protocol.EventMessageNotification, evt)
}

func (d *Dispatcher) alert(a Alert) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error().Interface("panic", rec).Msg("Alerter panicked")
		}
	}()
	d.alerter.Alert(a)
}

// AlertFor builds the alert shown for a message notification.
func AlertFor(evt protocol.MessageNotification) Alert {
	return Alert{
		Title:  evt.SenderName,
		Body:   evt.Preview,
		Avatar: evt.SenderAvatar,
		Action: Action{
			Label:          OpenActionLabel,
			ConversationID: evt.ConversationID,
		},
	}
}
