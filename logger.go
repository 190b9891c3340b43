package cloudflareip

import (
	"context"
)

// Logger records security-significant events and range refresh failures.
//
// Implementations should be safe for concurrent use, as a single Resolver or
// RangeProvider is typically shared across many goroutines. Implementations
// must not panic.
//
// The provided context comes from the inbound HTTP request or the refresh
// caller and can carry tracing metadata (for example, trace or span IDs).
//
// The interface intentionally mirrors slog's WarnContext and ErrorContext
// signatures, so *slog.Logger can be used directly without an adapter.
type Logger interface {
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// noopLogger is the default Logger implementation when logging is not
// explicitly configured.
type noopLogger struct{}

func (noopLogger) WarnContext(context.Context, string, ...any) {}

func (noopLogger) ErrorContext(context.Context, string, ...any) {}
