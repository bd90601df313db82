// Package telemetry owns the service's two observability surfaces:
// structured logging (this file) and the append-only audit sink
// (audit.go).
package telemetry

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// ParseLevel maps a LOG_LEVEL string onto a slog.Level, defaulting to
// Info on an empty or unrecognized value.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return slog.LevelInfo, nil
	case "trace", "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "crit", "critical":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// InitLogging installs the process-wide default logger, writing
// colorized terminal output at levelName's severity to stderr. Called
// once from cmd/relayer's main before any component is constructed.
func InitLogging(levelName string) error {
	level, err := ParseLevel(levelName)
	if err != nil {
		level = slog.LevelInfo
	}
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, level, false)
	log.SetDefault(log.NewLogger(handler))
	if err != nil {
		log.Warn("falling back to info log level", "requested", levelName)
	}
	return err
}
