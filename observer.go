package recorder

import (
	"context"
	"log/slog"
	"time"
)

// Op names a recorder event reported to an Observer.
type Op string

const (
	// OpCall is a wrapped call; hit reports whether it was served from records.
	OpCall Op = "call"
	// OpRecord is a new result written into records.
	OpRecord Op = "record"
	// OpLoad is a tape read on scope entry; hit reports whether a tape existed.
	OpLoad Op = "load"
	// OpSave is a tape write on scope exit.
	OpSave Op = "save"
)

// Observer receives events for recorder operations.
// It is called synchronously after each operation completes.
type Observer interface {
	OnRecordOp(ctx context.Context, op Op, conn string, function string, hit bool, err error, dur time.Duration)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op Op, conn string, function string, hit bool, err error, dur time.Duration)

// OnRecordOp implements Observer.
func (f ObserverFunc) OnRecordOp(ctx context.Context, op Op, conn string, function string, hit bool, err error, dur time.Duration) {
	if f == nil {
		return
	}
	f(ctx, op, conn, function, hit, err, dur)
}

// NewSlogObserver logs recorder events to logger. Successful calls log at
// debug level, failures at warn.
func NewSlogObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return ObserverFunc(func(ctx context.Context, op Op, conn string, function string, hit bool, err error, dur time.Duration) {
		attrs := []slog.Attr{
			slog.String("op", string(op)),
			slog.String("connection", conn),
			slog.Bool("hit", hit),
			slog.Duration("duration", dur),
		}
		if function != "" {
			attrs = append(attrs, slog.String("function", function))
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			logger.LogAttrs(ctx, slog.LevelWarn, "recorder operation failed", attrs...)
			return
		}
		logger.LogAttrs(ctx, slog.LevelDebug, "recorder operation", attrs...)
	})
}
