// Package logging provides structured logging for the solar power monitor.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same handler, level and default fields.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Rotated file output via lumberjack
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, file
//	  file:
//	    path: "./logs/solarpower.log"
//	    max_size: 10      # megabytes
//	    max_backups: 3
//	    max_age: 28       # days
//
// The -v command line flag overrides the level through VerbosityLevel.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	defer logger.Close()
//	logger.Info("listening", "port", 9195)
package logging
