/*
Package logx wraps zerolog for the realtime client.

InitGlobalLogger picks the output once at startup: a colored console on stderr while
developing, JSON on stdout otherwise. Long-lived parts of the client (channel, manager,
presence mirror, relay) log through a Component logger; one-off messages from main and
the control API go through the Info/Warn/Error/Fatal helpers, which take alternating
key-value fields.
*/
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger replaces the global zerolog logger. Every entry carries a Unix
// timestamp and the caller.
func InitGlobalLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if isDevelopment {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Logger exposes the global logger for call sites that want the zerolog builder API.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component derives a logger whose entries are tagged with component=name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

// Info logs msg at info level.
func Info(msg string, fields ...any) {
	emit(log.Logger.Info(), nil, msg, fields)
}

// Warn logs msg at warn level.
func Warn(msg string, fields ...any) {
	emit(log.Logger.Warn(), nil, msg, fields)
}

// Error logs msg with err attached.
func Error(err error, msg string, fields ...any) {
	emit(log.Logger.Error(), err, msg, fields)
}

// Fatal logs msg with err attached and exits the process with status 1.
// Deferred functions of the caller do not run.
func Fatal(err error, msg string, fields ...any) {
	emit(log.Logger.Fatal(), err, msg, fields)
}

// emit finishes evt. The caller frame reported is the one that called the exported helper.
func emit(evt *zerolog.Event, err error, msg string, fields []any) {
	if evt == nil {
		return
	}
	if err != nil {
		evt = evt.Err(err)
	}
	if pairs, ok := checkFields(fields); ok {
		evt = evt.Fields(pairs)
	} else {
		evt = evt.Int("dropped_fields", len(fields))
	}
	evt.CallerSkipFrame(2).Msg(msg)
}

// checkFields reports whether fields form key-value pairs. zerolog panics on a dangling key,
// so an odd list is dropped by the caller.
func checkFields(fields []any) ([]any, bool) {
	if len(fields)%2 != 0 {
		return nil, false
	}
	return fields, true
}
