// Package logging provides the minimal logging interface used across ragdesk
// and adapters for the structured loggers the binaries can be configured with.
//
// The Logger interface defines Debug, Info, Warn and Error taking a message plus
// alternating key/value pairs. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZapAdapter wrapping a zap SugaredLogger
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	desk, err := ragdesk.New(cfg, func(o *ragdesk.Options) { o.Logger = logger })
package logging
