package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger carried through every service. Action tags
// the log entry with the operation being performed, matching the service log
// format (timestamp, level, service, action, message, fields).
type Logger interface {
	Action(action string) Logger
	With(args ...any) Logger
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, err error, args ...any)
}

type zapLogger struct {
	sl *zap.SugaredLogger
}

// New creates a JSON logger for the named service, writing to stdout.
func New(service string) Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncoderConfig.MessageKey = "message"

	zl, err := cfg.Build(zap.WithCaller(false))
	if err != nil {
		zl = zap.NewNop()
	}
	return &zapLogger{sl: zl.Sugar().With("service", service)}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() Logger {
	return &zapLogger{sl: zap.NewNop().Sugar()}
}

func (l *zapLogger) Action(action string) Logger {
	return &zapLogger{sl: l.sl.With("action", action)}
}

func (l *zapLogger) With(args ...any) Logger {
	return &zapLogger{sl: l.sl.With(args...)}
}

func (l *zapLogger) Debug(msg string, args ...any) { l.sl.Debugw(msg, args...) }
func (l *zapLogger) Info(msg string, args ...any)  { l.sl.Infow(msg, args...) }
func (l *zapLogger) Warn(msg string, args ...any)  { l.sl.Warnw(msg, args...) }

func (l *zapLogger) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.sl.Errorw(msg, args...)
}
