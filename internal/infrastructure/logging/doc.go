// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Library packages accept a *zap.Logger and default to zap.NewNop(); only
// the binaries build a Logger from configuration. The CLI writes logs to
// stderr so that converted markup can be piped from stdout.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Server starting", zap.String("port", "8000"))
//	sync.WithLogger(logger.Component("synchronizer"))
package logging
