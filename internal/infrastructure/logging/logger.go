package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nerrad567/solarpower/internal/infrastructure/config"
)

// Logger wraps slog.Logger with service-specific defaults.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
	closer io.Closer
}

// New creates a new Logger with the specified configuration.
//
// It configures:
//   - Output destination (stdout, stderr, or a rotated file)
//   - Output format (JSON for production, text for development)
//   - Log level filtering
//   - Default fields (service name, version)
func New(cfg config.LoggingConfig, version string) *Logger {
	output, closer := openOutput(cfg)

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "solarpower"),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
		closer: closer,
	}
}

// openOutput resolves the configured writer. File output is rotated by
// lumberjack using the logging.file limits.
func openOutput(cfg config.LoggingConfig) (io.Writer, io.Closer) {
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		return os.Stderr, nil
	case "file":
		lj := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
			LocalTime:  true,
		}
		return lj, lj
	default:
		return os.Stdout, nil
	}
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// VerbosityLevel maps the numeric -v scale (0-5) onto a level name.
//
//	0     error only
//	1, 2  info (startup, registration outcomes)
//	3+    debug (every request and device exchange)
func VerbosityLevel(verbosity int) string {
	switch {
	case verbosity <= 0:
		return "error"
	case verbosity < 3:
		return "info"
	default:
		return "debug"
	}
}

// With returns a new Logger with additional default attributes.
//
// Example:
//
//	regLogger := logger.With("component", "directory")
//	regLogger.Info("registered") // Includes component=directory
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		closer: l.closer,
	}
}

// Close releases the log file when file output is used.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
