package logger

import corelogger "github.com/kilianp07/gatealloc/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.NopLogger

// New returns a Logger tagged with component. Output follows the last
// Configure call, or APP_ENV when Configure was never called.
func New(component string) Logger {
	return NewZerologLogger(component)
}
