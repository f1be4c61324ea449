/*
Package main is the entry point for the HZ Realtime client.

It loads configuration, initializes the global logging system, resolves the session
identity, connects the realtime manager to the messaging backend, serves the local
control API, optionally mirrors presence and relays events, and handles operating
system interrupt signals (SIGINT, SIGTERM) for a graceful shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"hzrealtime/internal/app/notify"
	"hzrealtime/internal/app/presence"
	"hzrealtime/internal/app/protocol"
	"hzrealtime/internal/app/realtime"
	"hzrealtime/internal/app/relay"
	"hzrealtime/internal/configs"
	"hzrealtime/internal/handler"
	"hzrealtime/internal/pkg/errs"
	"hzrealtime/internal/pkg/limiter"
	"hzrealtime/internal/pkg/logx"
)

func main() {
	os.Exit(run())
}

// run wires and runs the client. It returns the process exit code so that deferred
// cleanup runs before exiting.
func run() int {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		return 1
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("endpoint", cfg.Endpoint).
		Strs("transports", cfg.Transports).
		Int("control_port", cfg.ControlPort).
		Bool("presence_redis", cfg.RedisAddr != "").
		Bool("relay_nats", cfg.NATSURL != "").
		Msg("Configuration loaded successfully")

	identity, err := resolveIdentity(cfg)
	if err != nil {
		logx.Error(err, "Failed to resolve session identity")
		return 1
	}

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, err := realtime.NewManager(identity, realtime.ConfigFrom(cfg), realtime.Options{
		Alerter: notify.LogAlerter{Logger: logx.Component("notify")},
	})
	if err != nil {
		logx.Error(err, "Failed to create realtime manager")
		return 1
	}

	eventLogger := logx.Component("events")
	manager.OnStateChange(func(s realtime.State) {
		eventLogger.Info().Stringer("state", s).Msg("Connection state")
	})
	manager.OnError(func(e *errs.CustomError) {
		eventLogger.Warn().Int("code", e.Code).Msg(e.Message)
	})
	manager.OnNewMessage(func(m protocol.NewMessage) {
		eventLogger.Debug().Int64("conversation_id", m.ConversationID).Int64("message_id", m.ID).Msg("New message")
	})

	// Presence mirror: Redis when configured, process memory otherwise
	var store presence.Store = presence.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()

		pingCtx, cancelPing := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancelPing()
		if err != nil {
			logx.Error(err, "Failed to connect to Redis", "addr", cfg.RedisAddr)
			return 1
		}
		store = presence.NewRedisStore(rdb, cfg.RedisPresenceKey)
	}
	mirror := presence.NewMirror(manager, store, logx.Component("presence"))
	defer mirror.Stop()

	// Event relay
	if cfg.NATSURL != "" {
		nc, err := relay.Connect(cfg.NATSURL, logx.Component("relay"))
		if err != nil {
			logx.Error(err, "Failed to connect to NATS")
			return 1
		}
		defer drain(nc)

		r := relay.New(manager, nc, cfg.NATSSubjectPrefix, logx.Component("relay"))
		defer r.Stop()
	}

	if err := manager.Start(ctx); err != nil {
		logx.Error(err, "Failed to start realtime manager")
		return 1
	}

	sendLimiter := limiter.NewIPRateLimiter(rate.Limit(handler.SendRate), handler.SendBurst)
	defer sendLimiter.Stop()

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Controller:  manager,
		Config:      cfg,
		OwnerID:     identity.UserID,
		Presence:    store,
		SendLimiter: sendLimiter,
	})

	serverAddr := fmt.Sprintf("127.0.0.1:%d", cfg.ControlPort)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Control API listening on http://%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Control API failed to start")
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logx.Info("Received shutdown signal. Starting graceful shutdown...")
	case <-manager.Done():
		logx.Warn("Realtime channel stopped for good. Shutting down...", "state", manager.State().String())
		exitCode = 1
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Control API forced to shutdown")
	}

	manager.Close()

	logx.Info("Client gracefully stopped.")
	return exitCode
}

func drain(nc *nats.Conn) {
	if err := nc.Drain(); err != nil {
		logx.Warn("NATS drain failed", "error", err.Error())
	}
}
