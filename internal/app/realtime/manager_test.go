package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hzrealtime/internal/app/channel"
	"hzrealtime/internal/app/protocol"
	"hzrealtime/internal/app/session"
	"hzrealtime/internal/pkg/errs"
)

const waitFor = 2 * time.Second
const tick = 2 * time.Millisecond

type fakeConn struct {
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	mu      sync.Mutex
	written []protocol.Envelope
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) deliver(event string, data any) {
	frame, err := protocol.Encode(event, data)
	if err != nil {
		panic(err)
	}
	c.inbound <- frame
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case f := <-c.inbound:
		return f, nil
	case <-c.closed:
		return nil, errors.New("closed")
	}
}

func (c *fakeConn) WriteMessage(frame []byte) error {
	env, err := protocol.Decode(frame)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, env)
	return nil
}

func (c *fakeConn) WritePing() error { return nil }

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// sent returns the outbound envelopes with the given event name.
func (c *fakeConn) sent(event string) []protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []protocol.Envelope
	for _, env := range c.written {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

type fakeTransport struct {
	mu      sync.Mutex
	results []any
	dials   int
}

func (t *fakeTransport) Name() string { return "websocket" }

func (t *fakeTransport) Dial(context.Context, string, http.Header) (channel.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.results[min(t.dials, len(t.results)-1)]
	t.dials++
	if conn, ok := r.(*fakeConn); ok {
		return conn, nil
	}
	return nil, r.(error)
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func newTestManager(t *testing.T, cfg Config, results ...any) (*Manager, *fakeTransport) {
	t.Helper()

	tr := &fakeTransport{results: results}
	logger := zerolog.Nop()

	if cfg.Endpoint == "" {
		cfg.Endpoint = "ws://backend.test/realtime"
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = time.Millisecond
	}
	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = 5
	}
	if cfg.AuthTimeout == 0 {
		cfg.AuthTimeout = time.Minute
	}

	m, err := NewManager(session.Identity{UserID: 7, DisplayName: "Mia"}, cfg, Options{
		Transports: channel.Transports{"websocket": tr},
		Logger:     &logger,
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, tr
}

func authenticate(t *testing.T, m *Manager, conn *fakeConn) {
	t.Helper()
	require.Eventually(t, func() bool { return len(conn.sent(protocol.EventAuthenticate)) > 0 }, waitFor, tick)
	conn.deliver(protocol.EventAuthenticated, struct{}{})
	require.Eventually(t, m.Authenticated, waitFor, tick)
}

func TestConnectAuthenticateJoinSendAck(t *testing.T) {
	conn := newFakeConn()
	m, _ := newTestManager(t, Config{}, conn)

	var mu sync.Mutex
	var states []State
	var acks []protocol.MessageSent
	m.OnStateChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})
	m.OnMessageSent(func(evt protocol.MessageSent) {
		mu.Lock()
		defer mu.Unlock()
		acks = append(acks, evt)
	})

	require.NoError(t, m.Start(context.Background()))
	authenticate(t, m, conn)

	var auth protocol.Authenticate
	require.NoError(t, json.Unmarshal(conn.sent(protocol.EventAuthenticate)[0].Data, &auth))
	assert.Equal(t, int64(7), auth.UserID)

	require.True(t, m.Join(42))
	require.True(t, m.SendMessage(42, "hello", nil, "a1"))
	assert.Len(t, m.Pending(), 1)

	require.Eventually(t, func() bool { return len(conn.sent(protocol.EventSendMessage)) == 1 }, waitFor, tick)
	var send protocol.SendMessage
	require.NoError(t, json.Unmarshal(conn.sent(protocol.EventSendMessage)[0].Data, &send))
	assert.Equal(t, protocol.SendMessage{ConversationID: 42, SenderID: 7, Content: "hello", TempID: "a1"}, send)
	assert.Len(t, conn.sent(protocol.EventJoinConversation), 1)

	conn.deliver(protocol.EventMessageSent, protocol.MessageSent{Success: true, MessageID: 1001, TempID: "a1"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(acks) == 1
	}, waitFor, tick)

	mu.Lock()
	assert.Equal(t, protocol.MessageSent{Success: true, MessageID: 1001, TempID: "a1"}, acks[0])
	assert.Equal(t, []State{StateConnecting, StateConnected, StateAuthenticated}, states)
	mu.Unlock()
	assert.Empty(t, m.Pending())
}

func TestTwoSubscribersUnsubscribeOne(t *testing.T) {
	conn := newFakeConn()
	m, _ := newTestManager(t, Config{}, conn)

	var mu sync.Mutex
	var first, second []int64
	h := m.OnNewMessage(func(msg protocol.NewMessage) {
		mu.Lock()
		defer mu.Unlock()
		first = append(first, msg.ID)
	})
	m.OnNewMessage(func(msg protocol.NewMessage) {
		mu.Lock()
		defer mu.Unlock()
		second = append(second, msg.ID)
	})

	require.NoError(t, m.Start(context.Background()))
	authenticate(t, m, conn)

	conn.deliver(protocol.EventNewMessage, protocol.NewMessage{ID: 1, ConversationID: 42})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(second) == 1
	}, waitFor, tick)

	h()
	h()
	conn.deliver(protocol.EventNewMessage, protocol.NewMessage{ID: 2, ConversationID: 42})
	conn.deliver(protocol.EventNewMessage, protocol.NewMessage{ID: 3, ConversationID: 42})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(second) == 3
	}, waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1}, first)
	assert.Equal(t, []int64{1, 2, 3}, second)
}

func TestProtocolErrorDoesNotChangeState(t *testing.T) {
	conn := newFakeConn()
	m, _ := newTestManager(t, Config{}, conn)

	errCh := make(chan *errs.CustomError, 4)
	m.OnError(func(e *errs.CustomError) { errCh <- e })

	require.NoError(t, m.Start(context.Background()))
	authenticate(t, m, conn)

	conn.deliver(protocol.EventError, protocol.ErrorPayload{Message: "room closed"})

	select {
	case e := <-errCh:
		assert.Equal(t, errs.ErrProtocol, e.Code)
		assert.Equal(t, "Server error: room closed", e.Message)
	case <-time.After(waitFor):
		t.Fatal("no error event")
	}
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestAuthWatchdogReportsOnce(t *testing.T) {
	conn := newFakeConn()
	m, _ := newTestManager(t, Config{AuthTimeout: 20 * time.Millisecond}, conn)

	var mu sync.Mutex
	var codes []int
	m.OnError(func(e *errs.CustomError) {
		mu.Lock()
		defer mu.Unlock()
		codes = append(codes, e.Code)
	})

	require.NoError(t, m.Start(context.Background()))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(codes) == 1
	}, waitFor, tick)

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, []int{errs.ErrAuthNotAcknowledged}, codes)
	mu.Unlock()
	assert.Equal(t, StateConnected, m.State())
	assert.True(t, m.Connected())
	assert.False(t, m.Authenticated())
}

func TestAuthAckCancelsWatchdog(t *testing.T) {
	conn := newFakeConn()
	m, _ := newTestManager(t, Config{AuthTimeout: 200 * time.Millisecond}, conn)

	var mu sync.Mutex
	errCount := 0
	m.OnError(func(*errs.CustomError) {
		mu.Lock()
		defer mu.Unlock()
		errCount++
	})

	require.NoError(t, m.Start(context.Background()))
	authenticate(t, m, conn)

	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, errCount)
}

func TestReconnectExhaustion(t *testing.T) {
	m, tr := newTestManager(t, Config{}, errors.New("connection refused"))

	errCh := make(chan *errs.CustomError, 1)
	m.OnError(func(e *errs.CustomError) { errCh <- e })

	var mu sync.Mutex
	var states []State
	m.OnStateChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	require.NoError(t, m.Start(context.Background()))

	select {
	case <-m.Done():
	case <-time.After(waitFor):
		t.Fatal("manager did not give up")
	}

	mu.Lock()
	assert.Equal(t, []State{StateConnecting, StateReconnecting, StateFailed}, states)
	mu.Unlock()

	assert.Equal(t, StateFailed, m.State())
	assert.False(t, m.Connected())
	assert.Equal(t, 6, tr.dialCount())

	e := <-errCh
	assert.Equal(t, errs.ErrReconnectExhausted, e.Code)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 6, tr.dialCount())
	assert.False(t, m.Join(42))
}

func TestRejoinAfterReconnect(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	m, _ := newTestManager(t, Config{}, first, second)

	var mu sync.Mutex
	var states []State
	m.OnStateChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	require.NoError(t, m.Start(context.Background()))
	authenticate(t, m, first)
	require.True(t, m.Join(42))
	require.True(t, m.Join(43))

	_ = first.Close()

	authenticate(t, m, second)
	require.Eventually(t, func() bool { return len(second.sent(protocol.EventJoinConversation)) == 2 }, waitFor, tick)

	var join protocol.JoinConversation
	require.NoError(t, json.Unmarshal(second.sent(protocol.EventJoinConversation)[0].Data, &join))
	assert.Equal(t, protocol.JoinConversation{ConversationID: 42, UserID: 7}, join)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{
		StateConnecting, StateConnected, StateAuthenticated,
		StateReconnecting, StateConnected, StateAuthenticated,
	}, states)
}

func TestRejoinAfterReconnectWithoutAuthAck(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	m, _ := newTestManager(t, Config{AuthTimeout: 30 * time.Millisecond}, first, second)

	var mu sync.Mutex
	var codes []int
	m.OnError(func(e *errs.CustomError) {
		mu.Lock()
		defer mu.Unlock()
		codes = append(codes, e.Code)
	})
	degraded := func(n int) func() bool {
		return func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(codes) == n
		}
	}

	require.NoError(t, m.Start(context.Background()))
	require.Eventually(t, degraded(1), waitFor, tick)
	require.True(t, m.Join(42))
	require.Eventually(t, func() bool { return len(first.sent(protocol.EventJoinConversation)) == 1 }, waitFor, tick)

	_ = first.Close()

	require.Eventually(t, degraded(2), waitFor, tick)
	require.Eventually(t, func() bool { return len(second.sent(protocol.EventJoinConversation)) == 1 }, waitFor, tick)
	assert.Equal(t, StateConnected, m.State())
	assert.Equal(t, []int64{42}, m.Joined())
}

func TestCloseTearsDownSession(t *testing.T) {
	conn := newFakeConn()
	m, _ := newTestManager(t, Config{}, conn)

	require.NoError(t, m.Start(context.Background()))
	authenticate(t, m, conn)

	require.True(t, m.Join(42))
	require.True(t, m.SendMessage(42, "hello", nil, "a1"))
	conn.deliver(protocol.EventUserTyping, protocol.UserTyping{UserID: 9, IsTyping: true})
	require.Eventually(t, func() bool { return len(m.TypingUsers()) == 1 }, waitFor, tick)

	m.Close()
	m.Close()

	assert.Equal(t, StateIdle, m.State())
	assert.False(t, m.Connected())
	assert.Equal(t, session.Identity{}, m.Identity())
	assert.Empty(t, m.TypingUsers())
	assert.Empty(t, m.Pending())
	assert.Empty(t, m.Joined())

	// a frame already past the closed check when Close ran
	m.typing.Apply(protocol.UserTyping{UserID: 9, IsTyping: true})
	assert.Empty(t, m.TypingUsers())

	// every operation is now a safe no-op
	assert.False(t, m.Join(1))
	assert.False(t, m.SendMessage(1, "x", nil, "b1"))
	assert.False(t, m.StartTyping(1))
	assert.False(t, m.MarkRead(1))
	h := m.OnNewMessage(func(protocol.NewMessage) {})
	assert.NotPanics(t, func() { h(); h() })
	assert.ErrorIs(t, m.Start(context.Background()), ErrClosed)

	select {
	case <-m.Done():
	case <-time.After(waitFor):
		t.Fatal("channel still running")
	}
}

func TestTypingEventsFlowToTracker(t *testing.T) {
	conn := newFakeConn()
	m, _ := newTestManager(t, Config{TypingWindow: 150 * time.Millisecond}, conn)

	require.NoError(t, m.Start(context.Background()))
	authenticate(t, m, conn)

	conn.deliver(protocol.EventUserTyping, protocol.UserTyping{UserID: 9, UserName: "Ana", IsTyping: true})
	require.Eventually(t, func() bool { return len(m.TypingUsers()) == 1 }, waitFor, tick)
	assert.Equal(t, "Ana", m.TypingUsers()[0].UserName)

	require.Eventually(t, func() bool { return len(m.TypingUsers()) == 0 }, waitFor, tick)
}

func TestNotificationAndPresenceRouting(t *testing.T) {
	conn := newFakeConn()
	m, _ := newTestManager(t, Config{}, conn)

	notified := make(chan protocol.MessageNotification, 1)
	online := make(chan protocol.Presence, 1)
	orders := make(chan protocol.OrderStatusChanged, 1)
	m.OnNotification(func(n protocol.MessageNotification) { notified <- n })
	m.OnUserOnline(func(p protocol.Presence) { online <- p })
	m.OnOrderStatusChanged(func(o protocol.OrderStatusChanged) { orders <- o })

	require.NoError(t, m.Start(context.Background()))
	authenticate(t, m, conn)

	conn.deliver(protocol.EventMessageNotification, protocol.MessageNotification{ConversationID: 5, SenderName: "Ana", Preview: "hi"})
	conn.deliver(protocol.EventUserOnline, protocol.Presence{UserID: 3})
	conn.deliver(protocol.EventOrderStatusChanged, protocol.OrderStatusChanged{OrderID: 77, Status: "shipped"})

	assert.Equal(t, int64(5), (<-notified).ConversationID)
	assert.Equal(t, int64(3), (<-online).UserID)
	assert.Equal(t, "shipped", (<-orders).Status)
}

func TestNewManagerRejectsInvalidInput(t *testing.T) {
	_, err := NewManager(session.Identity{}, Config{Endpoint: "ws://x"}, Options{})
	assert.Error(t, err)

	_, err = NewManager(session.Identity{UserID: 1}, Config{Endpoint: "ws://x", Transports: []string{"polling"}}, Options{})
	assert.Error(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "unknown", State(99).String())

	text, err := StateFailed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "failed", string(text))
}
