package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Frames go out at Debug; rejections and errors at Warn so they surface in
// normal operation.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("link_id", event.LinkID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.SenderID != 0 {
		attrs = append(attrs, slog.Uint64("sender", uint64(event.SenderID)))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}

	level := slog.LevelDebug
	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Uint64("nonce", uint64(event.Frame.Nonce)),
			slog.Int("records", event.Frame.Records),
		)
		if event.Frame.Total > 0 {
			attrs = append(attrs,
				slog.Int("index", int(event.Frame.Index)),
				slog.Int("total", int(event.Frame.Total)),
			)
		}
	case event.Reject != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("reason", event.Reject.Reason.String()),
			slog.Int("frame_size", event.Reject.Size),
		)
		if event.Reject.Nonce != 0 {
			attrs = append(attrs, slog.Uint64("nonce", uint64(event.Reject.Nonce)))
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
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), level, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
