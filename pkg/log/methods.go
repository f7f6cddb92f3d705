package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// log is the common funnel for all leveled methods. Persistent fields are
// prepended so per-call fields can override them.
func (b *BaseLogger) log(level Level, msg string, fields []Field) {
	if level < b.level {
		return
	}
	attrs := attrsFromMap(b.fields)
	attrs = append(attrs, attrsFromFieldSlice(fields)...)
	b.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, attrs...)
}

// Debug logs a message at debug level.
func (b *BaseLogger) Debug(msg string, fields ...Field) { b.log(DebugLevel, msg, fields) }

// Info logs a message at info level.
func (b *BaseLogger) Info(msg string, fields ...Field) { b.log(InfoLevel, msg, fields) }

// Warn logs a message at warn level.
func (b *BaseLogger) Warn(msg string, fields ...Field) { b.log(WarnLevel, msg, fields) }

// Error logs a message at error level.
func (b *BaseLogger) Error(msg string, fields ...Field) { b.log(ErrorLevel, msg, fields) }

// Fatal logs a message at fatal level and exits the process.
func (b *BaseLogger) Fatal(msg string, fields ...Field) {
	b.log(FatalLevel, msg, fields)
	os.Exit(1)
}

// Debugf logs a formatted message at debug level.
func (b *BaseLogger) Debugf(msg string, args ...interface{}) {
	b.log(DebugLevel, fmt.Sprintf(msg, args...), nil)
}

// Infof logs a formatted message at info level.
func (b *BaseLogger) Infof(msg string, args ...interface{}) {
	b.log(InfoLevel, fmt.Sprintf(msg, args...), nil)
}

// Warnf logs a formatted message at warn level.
func (b *BaseLogger) Warnf(msg string, args ...interface{}) {
	b.log(WarnLevel, fmt.Sprintf(msg, args...), nil)
}

// Errorf logs a formatted message at error level.
func (b *BaseLogger) Errorf(msg string, args ...interface{}) {
	b.log(ErrorLevel, fmt.Sprintf(msg, args...), nil)
}

// Fatalf logs a formatted message at fatal level and exits the process.
func (b *BaseLogger) Fatalf(msg string, args ...interface{}) {
	b.log(FatalLevel, fmt.Sprintf(msg, args...), nil)
	os.Exit(1)
}

// clone copies the logger with its own fields map and a fresh slog bridge so
// derived loggers keep independent levels.
func (b *BaseLogger) clone() *BaseLogger {
	nb := &BaseLogger{
		level:     b.level,
		fields:    make(Fields, len(b.fields)+2),
		formatter: b.formatter,
		outputs:   b.outputs,
	}
	for k, v := range b.fields {
		nb.fields[k] = v
	}
	nb.slogLogger = slog.New(newBridgeHandler(nb))
	return nb
}

// WithField returns a logger with one extra persistent field.
func (b *BaseLogger) WithField(key string, value interface{}) Logger {
	nb := b.clone()
	nb.fields[key] = value
	return nb
}

// WithFields returns a logger with extra persistent fields.
func (b *BaseLogger) WithFields(fields Fields) Logger {
	nb := b.clone()
	for k, v := range fields {
		nb.fields[k] = v
	}
	return nb
}

// WithError returns a logger carrying an "error" field.
func (b *BaseLogger) WithError(err error) Logger {
	nb := b.clone()
	if err != nil {
		nb.fields["error"] = err.Error()
	}
	return nb
}

// With returns a logger with extra persistent fields (Field-based API).
func (b *BaseLogger) With(fields ...Field) Logger {
	nb := b.clone()
	for _, f := range fields {
		nb.fields[f.Key] = f.Value
	}
	return nb
}

// WithContext returns a logger carrying fields extracted from ctx.
func (b *BaseLogger) WithContext(ctx context.Context) Logger {
	extracted := ContextExtractor(ctx)
	if len(extracted) == 0 {
		return b
	}
	return b.WithFields(extracted)
}

// WithComponent tags the logger with a component name.
func (b *BaseLogger) WithComponent(component string) Logger {
	return b.WithField(ComponentKey, component)
}

// SetLevel sets the minimum log level.
func (b *BaseLogger) SetLevel(level Level) { b.level = level }

// GetLevel returns the current minimum log level.
func (b *BaseLogger) GetLevel() Level { return b.level }
