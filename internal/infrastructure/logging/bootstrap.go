package logging

import (
	"context"
	"sync"

	"github.com/strapi/strapi-sub004/internal/ports"
)

const defaultBootstrapLimit = 256

type logLevel int

const (
	levelDebug logLevel = iota
	levelInfo
	levelWarn
	levelError
)

type bufferedEntry struct {
	ctx    context.Context
	level  logLevel
	msg    string
	fields []interface{}
}

// Bootstrap collects entries emitted while the process is still reading its
// configuration, before the configured logger exists. Attach replays them
// into the real logger in order; afterwards every call is forwarded.
type Bootstrap struct {
	mu       sync.Mutex
	limit    int
	events   []bufferedEntry
	delegate ports.Logger
}

// NewBootstrap creates a bootstrap buffer holding at most limit entries; the
// oldest entries are dropped first.
func NewBootstrap(limit int) *Bootstrap {
	if limit <= 0 {
		limit = defaultBootstrapLimit
	}
	return &Bootstrap{limit: limit, events: make([]bufferedEntry, 0, limit)}
}

// Logger returns a ports.Logger writing into the bootstrap buffer.
func (b *Bootstrap) Logger() ports.Logger {
	return &bootstrapLogger{buffer: b}
}

// Attach replays buffered entries into delegate and forwards later entries.
func (b *Bootstrap) Attach(delegate ports.Logger) {
	if delegate == nil {
		return
	}
	b.mu.Lock()
	events := b.events
	b.events = nil
	b.delegate = delegate
	b.mu.Unlock()

	for _, entry := range events {
		emit(delegate, entry)
	}
}

func (b *Bootstrap) add(entry bufferedEntry) {
	b.mu.Lock()
	delegate := b.delegate
	if delegate == nil {
		if len(b.events) == b.limit {
			copy(b.events, b.events[1:])
			b.events[len(b.events)-1] = entry
		} else {
			b.events = append(b.events, entry)
		}
	}
	b.mu.Unlock()

	if delegate != nil {
		emit(delegate, entry)
	}
}

func emit(delegate ports.Logger, entry bufferedEntry) {
	switch entry.level {
	case levelDebug:
		delegate.Debug(entry.ctx, entry.msg, entry.fields...)
	case levelWarn:
		delegate.Warn(entry.ctx, entry.msg, entry.fields...)
	case levelError:
		delegate.Error(entry.ctx, entry.msg, entry.fields...)
	default:
		delegate.Info(entry.ctx, entry.msg, entry.fields...)
	}
}

type bootstrapLogger struct {
	buffer *Bootstrap
	fields []interface{}
}

func (l *bootstrapLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelDebug, msg, fields...)
}

func (l *bootstrapLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelInfo, msg, fields...)
}

func (l *bootstrapLogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelWarn, msg, fields...)
}

func (l *bootstrapLogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelError, msg, fields...)
}

func (l *bootstrapLogger) With(fields ...interface{}) ports.Logger {
	next := append(append([]interface{}{}, l.fields...), fields...)
	return &bootstrapLogger{buffer: l.buffer, fields: next}
}

func (l *bootstrapLogger) log(ctx context.Context, level logLevel, msg string, fields ...interface{}) {
	if l == nil || l.buffer == nil {
		return
	}
	l.buffer.add(bufferedEntry{
		ctx:    ctx,
		level:  level,
		msg:    msg,
		fields: append(append([]interface{}{}, l.fields...), fields...),
	})
}
