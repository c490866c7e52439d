// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it. Loggers derived
// before Setup keep the previous output, so components derive theirs at
// construction or call time.
func Setup(cfg Config) zerolog.Logger {
	level, ok := ParseLevel(string(cfg.Level))
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	if !ok {
		logger.Warn().Str("level", string(cfg.Level)).Msg("Unknown log level, using info")
	}

	return logger
}

// ParseLevel converts a case-insensitive level name to a zerolog.Level.
// Unknown names map to info and report false.
func ParseLevel(level string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, true
	case "info", "":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	default:
		return zerolog.InfoLevel, false
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Individual request attempts and gate waits
//   - Dry-run skips
//
// Info: Normal operation events
//   - Run start, id resolution, run summary
//   - Extraction progress
//   - Tables created by the schema check
//   - Metrics server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Retry exhaustion for a single URL
//   - Dropped records and quality failures (with reasons)
//   - Missing canonical stats
//   - Cache errors (fallback to direct request)
//   - Schema check failures (load continues)
//
// Error: Error conditions requiring attention
//   - Detail extraction failures
//   - Transform and load failures
//   - Id resolution failure (aborts the run)
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package (fetcher, pokeapi, pipeline, store, cache)
//   - run_id: pipeline run identifier
//   - pokemon_id: record being processed
//   - url: upstream request URL
//   - status: HTTP status code
//   - attempt: request attempt number
//   - error_class: error classification (client, server, rate_limit, network)
//   - reasons: quality check failures
//   - key: cache key
