package logging

import "go.uber.org/zap"

// ZapAdapter wraps *zap.SugaredLogger to implement the Logger interface.
// Arguments are passed through as zap's loosely typed key/value pairs.
type ZapAdapter struct {
	*zap.SugaredLogger
}

// NewZapAdapter creates a Logger from a sugared zap logger.
func NewZapAdapter(l *zap.SugaredLogger) Logger {
	return &ZapAdapter{SugaredLogger: l}
}

// Debug logs a debug message.
func (z *ZapAdapter) Debug(msg string, args ...any) { z.Debugw(msg, args...) }

// Info logs an informational message.
func (z *ZapAdapter) Info(msg string, args ...any) { z.Infow(msg, args...) }

// Warn logs a warning message.
func (z *ZapAdapter) Warn(msg string, args ...any) { z.Warnw(msg, args...) }

// Error logs an error message.
func (z *ZapAdapter) Error(msg string, args ...any) { z.Errorw(msg, args...) }
