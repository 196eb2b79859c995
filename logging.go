package timetravel

import (
	"context"
	"log/slog"
	"time"
)

// LogKind names the store event being logged.
type LogKind string

const (
	LogMutation LogKind = "mutation"
	LogTravel   LogKind = "travel"
	LogFork     LogKind = "fork"
	LogSwitch   LogKind = "switch"
	LogDelete   LogKind = "delete"
	LogRename   LogKind = "rename"
	LogAction   LogKind = "action"
	LogQuery    LogKind = "query"
	LogHook     LogKind = "hook_failure"
)

// LogEvent describes one store event. Fields unrelated to Kind are zero.
type LogEvent struct {
	Kind     LogKind
	Store    string
	Branch   string
	Action   string
	Position int
	Length   int
	Changed  bool
	Err      error
}

// Logger records store events.
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

// WithLogger attaches a store logger.
func WithLogger(logger Logger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// EvaluatorLogEvent describes one expression evaluation. Position is the
// timeline position the expression was evaluated against.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Store    string
	Branch   string
	Position int
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// WithEvaluatorLogger attaches an evaluator logger. Evaluations triggered by
// Where, Seek and Inspector.Query are logged once per evaluated document.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.evalLogger = noopEvaluatorLogger{}
			return
		}
		cfg.evalLogger = logger
	}
}

// SlogLogger forwards store events to a structured logger. Failures are
// logged at error level, everything else at debug.
func SlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		return noopLogger{}
	}
	return LoggerFunc(func(event LogEvent) {
		attrs := []slog.Attr{
			slog.String("store", event.Store),
			slog.String("branch", event.Branch),
			slog.Int("position", event.Position),
			slog.Int("length", event.Length),
		}
		if event.Action != "" {
			attrs = append(attrs, slog.String("action", event.Action))
		}
		if event.Kind == LogMutation {
			attrs = append(attrs, slog.Bool("changed", event.Changed))
		}
		level := slog.LevelDebug
		if event.Err != nil {
			level = slog.LevelError
			attrs = append(attrs, slog.String("error", event.Err.Error()))
		}
		logger.LogAttrs(context.Background(), level, "timetravel: "+string(event.Kind), attrs...)
	})
}

// SlogEvaluatorLogger forwards evaluator events to a structured logger.
func SlogEvaluatorLogger(logger *slog.Logger) EvaluatorLogger {
	if logger == nil {
		return noopEvaluatorLogger{}
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		attrs := []slog.Attr{
			slog.String("engine", event.Engine),
			slog.String("expr", event.Expr),
			slog.String("store", event.Store),
			slog.String("branch", event.Branch),
			slog.Int("position", event.Position),
			slog.Duration("duration", event.Duration),
		}
		level := slog.LevelDebug
		if event.Err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.String("error", event.Err.Error()))
		}
		logger.LogAttrs(context.Background(), level, "timetravel: evaluate", attrs...)
	})
}
