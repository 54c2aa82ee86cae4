package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config configures the node logger.
type Config struct {
	// Level is debug, info, warn or error. Empty means info.
	Level string
	// Format is json (default) or text.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
	// NodeID, when set, is attached to every record as node_id.
	NodeID string
}

// level is shared by every logger built by New so SetLevel reaches them
// all.
var level = new(slog.LevelVar)

// New builds a logger and sets the process-wide level from cfg.Level.
// Attributes whose key looks secret are redacted.
func New(cfg Config) (*slog.Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		h = slog.NewJSONHandler(out, opts)
	case "text", "console":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	level.Set(lvl)
	l := slog.New(h)
	if cfg.NodeID != "" {
		l = l.With("node_id", cfg.NodeID)
	}
	return l, nil
}

// SetLevel changes the level of every logger built by New.
func SetLevel(name string) error {
	lvl, err := ParseLevel(name)
	if err != nil {
		return err
	}
	level.Set(lvl)
	return nil
}

// GetLevel returns the current level name in lower case.
func GetLevel() string {
	return strings.ToLower(level.Level().String())
}

// ParseLevel parses a level name, case-insensitively. "warning" is an
// alias of warn and the empty string means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
