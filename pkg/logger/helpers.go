package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// LogNavigation logs a completed page navigation
func LogNavigation(l Logger, url string, status int64, duration time.Duration) {
	fields := map[string]interface{}{
		"url":         url,
		"status_code": status,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case status >= 500:
		l.ErrorWithFields("Navigation server error", fields)
	case status >= 400:
		l.WarnWithFields("Navigation client error", fields)
	default:
		l.DebugWithFields("Navigation completed", fields)
	}
}

// LogAccountOutcome logs the result of processing one account
func LogAccountOutcome(l Logger, accountID int64, fetched, stored int, err error) {
	entry := l.WithFields(map[string]interface{}{
		"account_id": accountID,
		"fetched":    fetched,
		"stored":     stored,
	})
	if err != nil {
		entry.WithError(err).Error("Account failed")
		return
	}
	entry.Info("Account timeline saved")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(config) > 0 {
		entry = entry.WithFields(config)
	}
	entry.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
