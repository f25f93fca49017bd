package log

import (
	"context"
	"encoding/hex"
	"log/slog"
)

// SlogAdapter mirrors capture events into an slog.Logger, one record per
// event with the payload fields flattened into attributes.
type SlogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogAdapter writes events to logger at debug level.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger, level: slog.LevelDebug}
}

// WithLevel returns a copy that logs at level.
func (a *SlogAdapter) WithLevel(level slog.Level) *SlogAdapter {
	return &SlogAdapter{logger: a.logger, level: level}
}

func (a *SlogAdapter) Log(event Event) {
	ctx := context.Background()
	if !a.logger.Enabled(ctx, a.level) {
		return
	}
	a.logger.LogAttrs(ctx, a.level, "capture", eventAttrs(event)...)
}

func eventAttrs(ev Event) []slog.Attr {
	attrs := make([]slog.Attr, 0, 10)
	attrs = append(attrs,
		slog.String("transport", ev.TransportID),
		slog.String("layer", ev.Layer.String()),
		slog.String("category", ev.Category.String()),
	)
	attrs = appendNonEmpty(attrs, "endpoint", ev.Endpoint)
	attrs = appendNonEmpty(attrs, "address", ev.Address)

	if f := ev.Frame; f != nil {
		attrs = append(attrs,
			slog.String("direction", ev.Direction.String()),
			slog.Int("size", f.Size),
			slog.String("data", hex.EncodeToString(f.Data)))
		if f.Repeat > 0 {
			attrs = append(attrs, slog.Int("repeat", f.Repeat))
		}
	}
	if c := ev.Call; c != nil {
		attrs = append(attrs,
			slog.String("service", c.Service),
			slog.Int("seq", int(c.SeqID)),
			slog.String("outcome", c.Outcome.String()))
		if c.RoundTrip != nil {
			attrs = append(attrs, slog.Duration("rtt", *c.RoundTrip))
		}
		attrs = appendNonEmpty(attrs, "cause", c.Cause)
	}
	if s := ev.StateChange; s != nil {
		attrs = append(attrs,
			slog.String("entity", s.Entity.String()),
			slog.String("from", s.OldState),
			slog.String("to", s.NewState))
		attrs = appendNonEmpty(attrs, "reason", s.Reason)
	}
	if d := ev.Drop; d != nil {
		attrs = append(attrs,
			slog.String("reason", d.Reason.String()),
			slog.Int("size", d.Size))
		attrs = appendNonEmpty(attrs, "detail", d.Detail)
	}
	if e := ev.Error; e != nil {
		attrs = append(attrs, slog.Group("error",
			slog.String("layer", e.Layer.String()),
			slog.String("message", e.Message),
			slog.String("context", e.Context)))
	}
	return attrs
}

func appendNonEmpty(attrs []slog.Attr, key, value string) []slog.Attr {
	if value == "" {
		return attrs
	}
	return append(attrs, slog.String(key, value))
}

var _ Logger = (*SlogAdapter)(nil)
