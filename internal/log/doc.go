// Package log provides the slog-based logger used by tunguard.
//
// The admin token travels in the Authorization header of every admin API
// request. SecureHandler wraps any slog.Handler and masks attributes whose
// key or value looks like a credential, so the token never reaches a log
// file even when verbose logging is enabled.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("requesting page", "authorization", token) // authorization=***REDACTED***
package log
