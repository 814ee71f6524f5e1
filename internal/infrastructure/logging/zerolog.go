package logging

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/strapi/strapi-sub004/internal/ports"
)

// ZerologLogger implements ports.Logger on top of zerolog.
type ZerologLogger struct {
	base   zerolog.Logger
	fields []interface{}
	layer  string
}

// NewZerolog creates a zerolog-backed logger writing JSON lines.
func NewZerolog(opts Options) (*ZerologLogger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	builder := zerolog.New(writer).Level(level).With().Timestamp()
	for _, pair := range chunk(mapToFields(opts.Fields)) {
		builder = builder.Interface(pair.key, pair.value)
	}
	if opts.ReportCaller {
		builder = builder.Caller()
	}

	return &ZerologLogger{
		base:   builder.Logger(),
		fields: componentFields(opts.Component),
		layer:  layerOrDefault(opts.Layer),
	}, nil
}

func (l *ZerologLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, l.base.Debug(), msg, fields)
}

func (l *ZerologLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, l.base.Info(), msg, fields)
}

func (l *ZerologLogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, l.base.Warn(), msg, fields)
}

func (l *ZerologLogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, l.base.Error(), msg, fields)
}

// With derives a logger that always writes the supplied fields.
func (l *ZerologLogger) With(fields ...interface{}) ports.Logger {
	if l == nil {
		return &NoOpLogger{}
	}
	return &ZerologLogger{base: l.base, fields: appendFields(l.fields, fields), layer: l.layer}
}

func (l *ZerologLogger) log(ctx context.Context, event *zerolog.Event, msg string, fields []interface{}) {
	if l == nil || event == nil {
		return
	}
	for _, pair := range chunk(mergeFields(l.fields, fields, contextExtras(ctx, l.layer))) {
		if err, ok := pair.value.(error); ok {
			event = event.AnErr(pair.key, err)
			continue
		}
		event = event.Interface(pair.key, pair.value)
	}
	event.Msg(msg)
}

type fieldPair struct {
	key   string
	value interface{}
}

func chunk(values []interface{}) []fieldPair {
	out := make([]fieldPair, 0, len(values)/2)
	for i := 0; i+1 < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		out = append(out, fieldPair{key: key, value: values[i+1]})
	}
	return out
}

var _ ports.Logger = (*ZerologLogger)(nil)
