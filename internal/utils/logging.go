package utils

import (
	"context"
	"log/slog"
)

// EventToSlog logs a progress event at debug level. attrs are key/value
// pairs as accepted by slog.Debug.
func EventToSlog(kind string, attrs ...any) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	slog.Debug("Event received", append([]any{"type", kind}, attrs...)...)
}

// AddIf appends name and *v to attrs when v is non-nil.
func AddIf[T any](attrs []any, name string, v *T) []any {
	if v != nil {
		attrs = append(attrs, name)
		attrs = append(attrs, *v)
	}

	return attrs
}
