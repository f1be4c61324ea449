package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hzrealtime/internal/app/events"
	"hzrealtime/internal/app/protocol"
	"hzrealtime/internal/app/realtime"
)

const (
	// size of the pending update queue.
	queueSize = 128

	// timeout of a single store write.
	writeTimeout = 2 * time.Second
)

// Source publishes presence events and the connection state they depend on.
type Source interface {
	OnUserOnline(fn func(protocol.Presence)) events.Handle
	OnUserOffline(fn func(protocol.Presence)) events.Handle
	OnStateChange(fn func(realtime.State)) events.Handle
}

type update struct {
	userID int64
	online bool
	// reset empties the store.
	reset bool
}

// Mirror applies presence events to a Store on its own goroutine, so slow store writes
// never hold up event delivery. Updates are applied in arrival order.
//
// Offline broadcasts sent while this client is disconnected never arrive, so the store is
// emptied on start and whenever the connection drops or fails. The backend announces the
// users that are online again after the reconnect.
type Mirror struct {
	store  Store
	logger zerolog.Logger

	queue   chan update
	handles []events.Handle

	stopOnce sync.Once
	done     chan struct{}
}

// NewMirror subscribes to source and starts applying updates to store.
func NewMirror(source Source, store Store, logger zerolog.Logger) *Mirror {
	m := &Mirror{
		store:  store,
		logger: logger,
		queue:  make(chan update, queueSize),
		done:   make(chan struct{}),
	}

	m.handles = []events.Handle{
		source.OnUserOnline(func(p protocol.Presence) { m.enqueue(update{userID: p.UserID, online: true}) }),
		source.OnUserOffline(func(p protocol.Presence) { m.enqueue(update{userID: p.UserID}) }),
		source.OnStateChange(func(s realtime.State) {
			if s == realtime.StateReconnecting || s == realtime.StateFailed {
				m.enqueue(update{reset: true})
			}
		}),
	}

	// entries left by an earlier run or another process are stale
	m.enqueue(update{reset: true})

	go m.run()
	return m
}

func (m *Mirror) enqueue(u update) {
	select {
	case m.queue <- u:
	case <-m.done:
	default:
		m.logger.Warn().Int64("user_id", u.userID).Bool("online", u.online).Bool("reset", u.reset).Msg("Presence queue full, dropping update")
	}
}

func (m *Mirror) run() {
	for {
		select {
		case u := <-m.queue:
			m.apply(u)
		case <-m.done:
			return
		}
	}
}

func (m *Mirror) apply(u update) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch {
	case u.reset:
		err = m.store.Clear(ctx)
		if err == nil {
			m.logger.Debug().Msg("Presence mirror cleared")
		}
	case u.online:
		err = m.store.Add(ctx, u.userID)
	default:
		err = m.store.Remove(ctx, u.userID)
	}

	if err != nil {
		m.logger.Error().Err(err).Int64("user_id", u.userID).Bool("online", u.online).Msg("Failed to mirror presence")
	}
}

// Stop unsubscribes and ends the worker. Updates still queued are discarded.
func (m *Mirror) Stop() {
	m.stopOnce.Do(func() {
		for _, h := range m.handles {
			h()
		}
		close(m.done)
	})
}
