// Package logger provides structured logging for the timeline fetcher.
//
// It wraps zerolog behind a small Logger interface so components can be
// handed a TestLogger in tests and a real logger in the CLI.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//
//	logger.Info("Application started")
//	logger.WithField("account_id", 1234).Info("Timeline saved")
//
// Components usually take a Logger in their constructor and fall back to
// GetLogger when given nil.
package logger
