package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates an adapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session", event.SessionID))
	}
	if event.PeerAddress != "" {
		attrs = append(attrs, slog.String("peer", event.PeerAddress))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.String("line", string(event.Frame.Data)),
		)
	case event.Driver != nil:
		attrs = append(attrs, slog.String("event", event.Driver.Type))
		if event.Driver.Interface != "" {
			attrs = append(attrs, slog.String("iface", event.Driver.Interface))
		}
		if event.Driver.Status != nil {
			attrs = append(attrs, slog.Int("status", *event.Driver.Status))
		}
		if event.Driver.Detail != "" {
			attrs = append(attrs, slog.String("detail", event.Driver.Detail))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Request != nil:
		attrs = append(attrs, slog.String("op", event.Request.Op))
		if event.Request.Status != "" {
			attrs = append(attrs, slog.String("status", event.Request.Status))
		}
		if event.Request.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Request.Reason))
		}
		if event.Request.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *event.Request.ProcessingTime))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
