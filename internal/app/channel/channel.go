package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxReconnectAttempts is the number of dials after the first failure before giving up.
	DefaultMaxReconnectAttempts = 5

	// DefaultReconnectDelay is the fixed pause between dials.
	DefaultReconnectDelay = time.Second

	// size of the outbound frame queue.
	sendQueueSize = 256
)

// ErrClosed is returned by Start on a channel that was already closed or started.
var ErrClosed = errors.New("channel closed")

// Options configures a Channel.
type Options struct {
	// Endpoint is the backend URL.
	Endpoint string

	// Header is sent with every handshake.
	Header http.Header

	// Transports are tried in order on every dial; the first that connects is used.
	Transports []Transport

	MaxReconnectAttempts int
	ReconnectDelay       time.Duration

	// PingPeriod overrides the heartbeat interval. Zero uses the WebSocket default.
	PingPeriod time.Duration
}

// Handler receives the channel's lifecycle notifications and inbound frames.
// Every callback runs on the channel's single run goroutine, in order.
type Handler struct {
	OnConnected    func(transport string)
	OnDisconnected func(err error)
	// OnRetry runs after a failed dial that will be retried, before the delay.
	// attempt is the number of the upcoming retry, starting at 1.
	OnRetry  func(attempt int, err error)
	OnFailed func(attempts int, err error)
	OnFrame  func(frame []byte)
}

// Channel owns at most one live connection at a time.
type Channel struct {
	opts    Options
	handler Handler
	logger  zerolog.Logger

	// mu protects conn, send, started and closed.
	mu      sync.RWMutex
	conn    Conn
	send    chan []byte
	started bool
	closed  bool
	cancel  context.CancelFunc

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a Channel. It does not dial until Start is called.
func New(opts Options, handler Handler, logger zerolog.Logger) (*Channel, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("channel endpoint is required")
	}
	if len(opts.Transports) == 0 {
		return nil, fmt.Errorf("at least one transport is required")
	}
	if opts.MaxReconnectAttempts < 0 {
		opts.MaxReconnectAttempts = 0
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = pingPeriod
	}

	return &Channel{
		opts:    opts,
		handler: handler,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start launches the connect loop. It returns immediately.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.started {
		return ErrClosed
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.started = true
	c.cancel = cancel

	go c.run(runCtx)
	return nil
}

// Send queues a frame for the write pump. It never blocks: without a live connection,
// or with a full queue, the frame is dropped and false is returned.
func (c *Channel) Send(frame []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.send == nil {
		return false
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Send queue full, dropping frame")
		return false
	}
}

// Connected reports whether a connection is live.
func (c *Channel) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Close stops the connect loop and closes the live connection. Safe to call more than once.
// It does not wait for the run goroutine; use Done for that.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		cancel, started := c.cancel, c.started
		c.mu.Unlock()

		if started {
			cancel()
		} else {
			close(c.done)
		}
	})
}

// Done is closed once the run goroutine has exited.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// run dials, serves and redials until the context ends or the attempts are exhausted.
// The initial failure (failed first dial or dropped connection) is followed by at most
// MaxReconnectAttempts further dials.
func (c *Channel) run(ctx context.Context) {
	defer close(c.done)

	attempt := 0
	for {
		if attempt > 0 && !c.sleep(ctx) {
			return
		}

		conn, name, err := c.dial(ctx)
		if ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			return
		}

		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("Connect failed")
			if attempt >= c.opts.MaxReconnectAttempts {
				c.logger.Error().Err(err).Int("attempts", attempt).Msg("Reconnect attempts exhausted, giving up")
				if c.handler.OnFailed != nil {
					c.handler.OnFailed(attempt, err)
				}
				return
			}
			attempt++
			if c.handler.OnRetry != nil {
				c.handler.OnRetry(attempt, err)
			}
			continue
		}

		dropErr := c.serve(ctx, conn, name)
		if ctx.Err() != nil {
			return
		}

		c.logger.Warn().Err(dropErr).Msg("Connection lost, reconnecting")
		if c.handler.OnDisconnected != nil {
			c.handler.OnDisconnected(dropErr)
		}
		attempt = 1
	}
}

func (c *Channel) sleep(ctx context.Context) bool {
	timer := time.NewTimer(c.opts.ReconnectDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// dial tries every transport in order and returns the first connection.
func (c *Channel) dial(ctx context.Context) (Conn, string, error) {
	var errList []error
	for _, tr := range c.opts.Transports {
		conn, err := tr.Dial(ctx, c.opts.Endpoint, c.opts.Header.Clone())
		if err == nil {
			return conn, tr.Name(), nil
		}

		errList = append(errList, fmt.Errorf("%s: %w", tr.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, "", errors.Join(errList...)
}

// serve publishes conn, runs its pumps and blocks until the connection ends.
func (c *Channel) serve(ctx context.Context, conn Conn, transport string) error {
	send := make(chan []byte, sendQueueSize)
	stop := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.send = send
	c.mu.Unlock()

	logger := c.logger.With().Str("transport", transport).Logger()
	logger.Info().Str("endpoint", c.opts.Endpoint).Msg("Connected")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.writePump(conn, send, stop, logger)
	}()
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	if c.handler.OnConnected != nil {
		c.handler.OnConnected(transport)
	}

	err := c.readPump(ctx, conn, logger)

	c.mu.Lock()
	c.conn = nil
	c.send = nil
	c.mu.Unlock()

	close(stop)
	if closeErr := conn.Close(); closeErr != nil {
		logger.Debug().Err(closeErr).Msg("Connection close error")
	}
	wg.Wait()

	return err
}

// readPump hands every inbound frame to the handler until the connection fails.
func (c *Channel) readPump(ctx context.Context, conn Conn, logger zerolog.Logger) error {
	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			if isExpectedClose(err) {
				logger.Info().Err(err).Msg("Backend closed the connection")
			}
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if c.handler.OnFrame != nil {
			c.handler.OnFrame(frame)
		}
	}
}

// writePump drains the send queue and keeps the heartbeat going.
// A write failure closes conn, which ends the read pump.
func (c *Channel) writePump(conn Conn, send <-chan []byte, stop <-chan struct{}, logger zerolog.Logger) {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-send:
			if err := conn.WriteMessage(frame); err != nil {
				logger.Error().Err(err).Msg("Error writing frame")
				_ = conn.Close()
				return
			}

		case <-ticker.C:
			if err := conn.WritePing(); err != nil {
				logger.Error().Err(err).Msg("Error writing ping")
				_ = conn.Close()
				return
			}

		case <-stop:
			return
		}
	}
}
