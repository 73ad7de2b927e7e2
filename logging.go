package hookstate

import (
	"context"
	"log/slog"
	"time"
)

// LogKind names the occurrence being logged.
type LogKind string

const (
	// LogCallbackPanic is emitted when a subscriber or plugin callback panics.
	LogCallbackPanic LogKind = "callback.panic"
	// LogStaleSettlement is emitted when a superseded promise settles.
	LogStaleSettlement LogKind = "promise.stale"
	// LogPromiseRejected is emitted when the root promise rejects.
	LogPromiseRejected LogKind = "promise.rejected"
	// LogQueueDropped is emitted when writes queued behind a promise are
	// discarded.
	LogQueueDropped LogKind = "queue.dropped"
	// LogEvaluation is emitted after every expression evaluation.
	LogEvaluation LogKind = "evaluate"
	// LogPluginAttach is emitted when a plugin given to New fails to attach.
	LogPluginAttach LogKind = "plugin.attach"
	// LogInvalidOption is emitted for an option New could not apply.
	LogInvalidOption LogKind = "option.invalid"
)

// LogEvent describes one loggable occurrence inside a State.
type LogEvent struct {
	Kind     LogKind
	Path     Path
	Engine   string
	Expr     string
	Detail   string
	Duration time.Duration
	Err      error
}

// Logger records state events.
type Logger interface {
	LogEvent(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogEvent implements Logger.
func (f LoggerFunc) LogEvent(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogEvent(LogEvent) {}

// SlogLogger emits state events to a slog.Logger. Panics and rejections log
// at warn level, everything else at debug.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a Logger backed by logger. A nil logger uses
// slog.Default.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

func (l *SlogLogger) LogEvent(event LogEvent) {
	attrs := make([]slog.Attr, 0, 6)
	attrs = append(attrs, slog.String("path", event.Path.String()))
	if event.Engine != "" {
		attrs = append(attrs, slog.String("engine", event.Engine))
	}
	if event.Expr != "" {
		attrs = append(attrs, slog.String("expr", event.Expr))
	}
	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}
	if event.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", event.Duration))
	}
	level := slog.LevelDebug
	if event.Err != nil {
		attrs = append(attrs, slog.Any("error", event.Err))
	}
	switch event.Kind {
	case LogCallbackPanic, LogPromiseRejected, LogPluginAttach, LogInvalidOption:
		level = slog.LevelWarn
	}
	l.logger.LogAttrs(context.Background(), level, string(event.Kind), attrs...)
}

// WithLogger attaches a logger to the State.
func WithLogger(logger Logger) Option {
	return func(cfg *stateConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
