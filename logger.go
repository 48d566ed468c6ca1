package flexconfig

// Logger defines the interface for library logging. Structured key-value
// pairs keep the output parseable and make the interface compatible with
// slog, zap's sugared logger and similar backends:
//
//	logger.Info("configuration reloaded", "version", 3, "keys", 42)
//
// The library never logs secret values; provider feeders log key names only.
type Logger interface {
	// Info logs normal events such as a completed build or reload.
	Info(msg string, args ...any)

	// Error logs failures that abort an operation.
	Error(msg string, args ...any)

	// Warn logs tolerated failures, such as a skipped optional feeder.
	Warn(msg string, args ...any)

	// Debug logs per-key diagnostic detail, typically disabled in production.
	Debug(msg string, args ...any)
}

// NopLogger discards all log output. It is the default when no logger is
// configured on the builder.
type NopLogger struct{}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, ...any) {}

// Warn implements Logger.
func (NopLogger) Warn(string, ...any) {}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}
