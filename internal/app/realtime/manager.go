/*
Package realtime drives the connection to the messaging backend for one user session.

The Manager owns the channel exclusively. It authenticates on every connect, tracks the
lifecycle state, routes inbound events to the typing tracker, the send correlator and the
notification dispatcher, and exposes typed subscriptions for everything else. Close tears
the whole session down at once.
*/
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hzrealtime/internal/app/channel"
	"hzrealtime/internal/app/events"
	"hzrealtime/internal/app/messaging"
	"hzrealtime/internal/app/notify"
	"hzrealtime/internal/app/protocol"
	"hzrealtime/internal/app/rooms"
	"hzrealtime/internal/app/session"
	"hzrealtime/internal/app/typing"
	"hzrealtime/internal/configs"
	"hzrealtime/internal/pkg/errs"
	"hzrealtime/internal/pkg/logx"
)

// DefaultAuthTimeout is how long to wait for the authentication acknowledgement.
const DefaultAuthTimeout = 5 * time.Second

var (
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("realtime manager closed")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("realtime manager already started")
)

// Config holds the connection settings of a Manager.
type Config struct {
	Endpoint             string
	Token                string
	Transports           []string
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	TypingWindow         time.Duration
	AuthTimeout          time.Duration
}

// ConfigFrom extracts the connection settings from the application configuration.
func ConfigFrom(cfg *configs.AppConfig) Config {
	return Config{
		Endpoint:             cfg.Endpoint,
		Token:                cfg.SessionToken,
		Transports:           cfg.Transports,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		ReconnectDelay:       cfg.ReconnectDelay,
		TypingWindow:         cfg.TypingWindow,
		AuthTimeout:          cfg.AuthTimeout,
	}
}

// Options holds the optional collaborators of a Manager.
type Options struct {
	// Transports available by name. Nil uses channel.DefaultTransports.
	Transports channel.Transports

	// Alerter presents message notifications. Nil disables alerts.
	Alerter notify.Alerter

	// Scheduler runs typing expiry tasks. Nil uses real timers.
	Scheduler typing.Scheduler

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// Manager is the connection lifecycle manager of one session.
type Manager struct {
	cfg    Config
	logger zerolog.Logger

	registry *events.Registry
	rooms    *rooms.Manager
	typing   *typing.Tracker
	messages *messaging.Correlator
	notify   *notify.Dispatcher
	done     <-chan struct{}

	// mu protects every field below. It is never held while emitting or publishing.
	mu          sync.RWMutex
	ch          *channel.Channel
	identity    session.Identity
	state       State
	started     bool
	closed      bool
	reconnected bool
	authTimer   *time.Timer
	authGen     uint64
}

// NewManager creates a Manager for identity. The channel is created but not dialed.
func NewManager(identity session.Identity, cfg Config, opts Options) (*Manager, error) {
	if !identity.Valid() {
		return nil, fmt.Errorf("invalid session identity: user id %d", identity.UserID)
	}

	logger := logx.Component("realtime")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger = logger.With().Int64("user_id", identity.UserID).Logger()

	available := opts.Transports
	if available == nil {
		available = channel.DefaultTransports()
	}
	names := cfg.Transports
	if len(names) == 0 {
		names = configs.KnownTransports
	}
	transports, err := available.Select(names)
	if err != nil {
		return nil, err
	}

	if cfg.TypingWindow <= 0 {
		cfg.TypingWindow = typing.DefaultWindow
	}

	scheduler := opts.Scheduler
	if scheduler == nil {
		scheduler = typing.RealScheduler
	}

	m := &Manager{
		cfg:      cfg,
		logger:   logger,
		identity: identity,
		state:    StateIdle,
		registry: events.NewRegistry(logger.With().Str("component", "registry").Logger()),
	}

	m.rooms = rooms.NewManager(m, logger.With().Str("component", "rooms").Logger())
	m.typing = typing.NewTracker(m, m.registry, scheduler, cfg.TypingWindow, logger.With().Str("component", "typing").Logger())
	m.messages = messaging.NewCorrelator(m, logger.With().Str("component", "messaging").Logger())
	m.notify = notify.NewDispatcher(m.registry, opts.Alerter, logger.With().Str("component", "notify").Logger())

	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}

	ch, err := channel.New(channel.Options{
		Endpoint:             cfg.Endpoint,
		Header:               header,
		Transports:           transports,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		ReconnectDelay:       cfg.ReconnectDelay,
	}, channel.Handler{
		OnConnected:    m.onConnected,
		OnDisconnected: m.onDisconnected,
		OnRetry:        m.onRetry,
		OnFailed:       m.onFailed,
		OnFrame:        m.onFrame,
	}, logger.With().Str("component", "channel").Logger())
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}

	m.ch = ch
	m.done = ch.Done()
	return m, nil
}

// Start dials the backend. Connection progress is reported through state changes.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	ch := m.ch
	m.mu.Unlock()

	m.transition(StateConnecting)
	return ch.Start(ctx)
}

// Close tears the session down: the channel is closed, typing timers are cancelled,
// pending sends and memberships are dropped, every subscription is released, the state
// returns to Idle and the identity is discarded. Safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true

	m.stopAuthWatchdogLocked()

	if m.ch != nil {
		m.ch.Close()
		m.ch = nil
	}

	m.typing.Close()
	m.messages.Reset()
	m.rooms.Close()
	m.registry.Close()

	m.state = StateIdle
	m.identity = session.Identity{}

	m.logger.Info().Msg("Session torn down")
}

// Done is closed once the channel has stopped for good, after Close or when reconnection
// is exhausted.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Emit encodes and queues an outbound event. It reports false when there is no channel,
// the transport is down, or the send queue is full.
func (m *Manager) Emit(event string, payload any) bool {
	m.mu.RLock()
	ch := m.ch
	m.mu.RUnlock()

	if ch == nil {
		return false
	}

	frame, err := protocol.Encode(event, payload)
	if err != nil {
		m.logger.Error().Err(err).Str("event", event).Msg("Failed to encode outbound event")
		return false
	}

	if !ch.Send(frame) {
		m.logger.Debug().Str("event", event).Msg("Outbound event dropped")
		return false
	}
	return true
}

// Identity returns the session identity, or the zero identity after Close.
func (m *Manager) Identity() session.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Connected reports whether the transport is up, authenticated or not.
func (m *Manager) Connected() bool {
	return m.State().Live()
}

// Authenticated reports whether the backend acknowledged authentication.
func (m *Manager) Authenticated() bool {
	return m.State() == StateAuthenticated
}

// transition moves to state to and publishes the change. Failed and closed managers
// do not move.
func (m *Manager) transition(to State) {
	m.mu.Lock()
	if m.closed || m.state == to || m.state == StateFailed {
		m.mu.Unlock()
		return
	}
	from := m.state
	m.state = to
	m.mu.Unlock()

	m.logger.Info().Stringer("from", from).Stringer("to", to).Msg("Connection state changed")
	m.registry.Publish(events.KindState, to)
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *Manager) onConnected(transport string) {
	m.transition(StateConnected)

	id := m.Identity()
	if !m.Emit(protocol.EventAuthenticate, protocol.Authenticate{UserID: id.UserID}) {
		m.logger.Warn().Str("transport", transport).Msg("Failed to send authenticate request")
	}

	m.armAuthWatchdog()
}

func (m *Manager) onDisconnected(err error) {
	m.mu.Lock()
	m.stopAuthWatchdogLocked()
	m.reconnected = true
	m.mu.Unlock()

	m.transition(StateReconnecting)
}

// onRetry covers a first dial that failed: the session is reconnecting from then on.
func (m *Manager) onRetry(attempt int, err error) {
	m.logger.Debug().Err(err).Int("retry", attempt).Msg("Dial failed, retrying")
	m.transition(StateReconnecting)
}

func (m *Manager) onFailed(attempts int, err error) {
	m.mu.Lock()
	m.stopAuthWatchdogLocked()
	m.mu.Unlock()

	m.transition(StateFailed)
	m.registry.Publish(protocol.EventError, errs.NewError(errs.ErrReconnectExhausted, attempts))
}

func (m *Manager) armAuthWatchdog() {
	if m.cfg.AuthTimeout <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.stopAuthWatchdogLocked()
	gen := m.authGen
	m.authTimer = time.AfterFunc(m.cfg.AuthTimeout, func() { m.authTimedOut(gen) })
}

// stopAuthWatchdogLocked cancels the watchdog and invalidates a fire already in flight.
func (m *Manager) stopAuthWatchdogLocked() {
	if m.authTimer != nil {
		m.authTimer.Stop()
		m.authTimer = nil
	}
	m.authGen++
}

func (m *Manager) authTimedOut(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.authGen || m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	m.authTimer = nil
	rejoin := m.reconnected
	m.reconnected = false
	m.mu.Unlock()

	m.logger.Warn().Dur("timeout", m.cfg.AuthTimeout).Msg("Authentication not acknowledged, connection degraded")
	m.registry.Publish(protocol.EventError, errs.NewError(errs.ErrAuthNotAcknowledged, m.cfg.AuthTimeout))

	// degraded sessions keep their memberships across reconnects
	if rejoin {
		m.rooms.Rejoin()
	}
}

func (m *Manager) onAuthenticated() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.stopAuthWatchdogLocked()
	rejoin := m.reconnected
	m.reconnected = false
	m.mu.Unlock()

	m.transition(StateAuthenticated)

	if rejoin {
		m.rooms.Rejoin()
	}
}

// onFrame decodes and routes one inbound frame. It runs on the channel's read pump,
// so frames are routed strictly in arrival order.
func (m *Manager) onFrame(frame []byte) {
	if m.isClosed() {
		return
	}

	env, err := protocol.Decode(frame)
	if err != nil {
		m.logger.Warn().Err(err).Bytes("frame", frame).Msg("Backend sent invalid JSON")
		return
	}

	switch env.Event {
	case protocol.EventAuthenticated:
		m.onAuthenticated()

	case protocol.EventNewMessage:
		forward[protocol.NewMessage](m, env)

	case protocol.EventMessageSent:
		if evt, ok := decode[protocol.MessageSent](m, env); ok {
			m.messages.Ack(evt)
			m.registry.Publish(env.Event, evt)
		}

	case protocol.EventUserTyping:
		if evt, ok := decode[protocol.UserTyping](m, env); ok {
			m.typing.Apply(evt)
			m.registry.Publish(env.Event, evt)
		}

	case protocol.EventMessagesRead:
		forward[protocol.MessagesRead](m, env)

	case protocol.EventMessageNotification:
		if evt, ok := decode[protocol.MessageNotification](m, env); ok {
			m.notify.Notify(evt)
		}

	case protocol.EventUserOnline:
		if evt, ok := decode[protocol.Presence](m, env); ok {
			m.notify.Online(evt)
		}

	case protocol.EventUserOffline:
		if evt, ok := decode[protocol.Presence](m, env); ok {
			m.notify.Offline(evt)
		}

	case protocol.EventOrderStatusChanged:
		forward[protocol.OrderStatusChanged](m, env)

	case protocol.EventError:
		if evt, ok := decode[protocol.ErrorPayload](m, env); ok {
			m.logger.Warn().Str("message", evt.Message).Msg("Backend reported an error")
			m.registry.Publish(protocol.EventError, errs.NewError(errs.ErrProtocol, evt.Message))
		}

	default:
		m.logger.Debug().Str("event", env.Event).Msg("Ignoring unsupported event")
	}
}

func decode[T any](m *Manager, env protocol.Envelope) (T, bool) {
	var v T
	if len(env.Data) == 0 {
		return v, true
	}
	if err := json.Unmarshal(env.Data, &v); err != nil {
		m.logger.Warn().Err(err).Str("event", env.Event).Msg("Backend sent invalid payload")
		return v, false
	}
	return v, true
}

func forward[T any](m *Manager, env protocol.Envelope) {
	if v, ok := decode[T](m, env); ok {
		m.registry.Publish(env.Event, v)
	}
}
