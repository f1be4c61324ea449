/*
Package relay republishes inbound realtime events onto NATS subjects, so other local
processes can react to messages, receipts and presence without their own backend connection.

Every event goes to "<prefix>.<event>" with the JSON payload as body and the relay's
instance id in the Hz-Instance header.
*/
package relay

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"hzrealtime/internal/app/events"
	"hzrealtime/internal/app/protocol"
	"hzrealtime/internal/pkg/randx"
)

// InstanceHeader carries the id of the relaying process.
const InstanceHeader = "Hz-Instance"

// RelayedEvents lists the inbound events that are republished.
var RelayedEvents = []string{
	protocol.EventNewMessage,
	protocol.EventMessageSent,
	protocol.EventMessagesRead,
	protocol.EventUserTyping,
	protocol.EventUserOnline,
	protocol.EventUserOffline,
	protocol.EventMessageNotification,
	protocol.EventOrderStatusChanged,
	protocol.EventError,
}

// Publisher sends one message. *nats.Conn satisfies it.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// Source exposes raw event subscriptions.
type Source interface {
	Subscribe(kind string, fn func(any)) events.Handle
}

// Relay forwards events from a Source to a Publisher.
type Relay struct {
	pub        Publisher
	prefix     string
	instanceID string
	logger     zerolog.Logger
	handles    []events.Handle
}

// New subscribes to every relayed event of source.
func New(source Source, pub Publisher, prefix string, logger zerolog.Logger) *Relay {
	r := &Relay{
		pub:        pub,
		prefix:     strings.TrimSuffix(prefix, "."),
		instanceID: randx.InstanceID(),
		logger:     logger,
	}

	for _, kind := range RelayedEvents {
		kind := kind
		r.handles = append(r.handles, source.Subscribe(kind, func(payload any) {
			r.forward(kind, payload)
		}))
	}
	return r
}

// Subject returns the subject an event is published on.
func (r *Relay) Subject(event string) string {
	if r.prefix == "" {
		return event
	}
	return r.prefix + "." + event
}

func (r *Relay) forward(event string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error().Err(err).Str("event", event).Msg("Failed to marshal relayed event")
		return
	}

	msg := nats.NewMsg(r.Subject(event))
	msg.Data = body
	msg.Header.Set(InstanceHeader, r.instanceID)

	if err := r.pub.PublishMsg(msg); err != nil {
		r.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("Failed to relay event")
	}
}

// Stop unsubscribes from the source. It does not close the publisher.
func (r *Relay) Stop() {
	for _, h := range r.handles {
		h()
	}
	r.handles = nil
}

// Connect opens the NATS connection used by the relay.
func Connect(url string, logger zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("hzrealtime-relay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(3*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return nc, nil
}
