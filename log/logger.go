package log

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// TracingHook copies the active span's ids onto every log event so log
// lines can be joined with traces.
type TracingHook struct{}

func (TracingHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		e.Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String())
	}
}

// Setup configures the process-global zerolog logger. Every package that
// logs through zerolog's log package picks this up.
func Setup(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	zlog.Logger = logger.
		Level(lvl).
		Hook(TracingHook{}).
		With().
		Timestamp().
		Logger()
}

// Ctx returns a logger bound to ctx so the tracing hook can see the active
// span.
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := zlog.Logger.With().Ctx(ctx).Logger()
	return &logger
}
