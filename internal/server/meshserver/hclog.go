package meshserver

import (
	"bytes"
	"io"
	"log"
	"log/slog"

	"github.com/hashicorp/go-hclog"
)

// hcLogger adapts slog.Logger to the hashicorp/go-hclog.Logger interface.
// memberlist logs through its StandardLogger.
type hcLogger struct {
	base   *slog.Logger
	logger *slog.Logger
	name   string
}

func newHCLogger(base *slog.Logger, name string) *hcLogger {
	return &hcLogger{base: base, logger: base.With("component", name), name: name}
}

func (l *hcLogger) Log(level hclog.Level, msg string, args ...any) {
	switch level {
	case hclog.Trace, hclog.Debug:
		l.logger.Debug(msg, args...)
	case hclog.Info:
		l.logger.Info(msg, args...)
	case hclog.Warn:
		l.logger.Warn(msg, args...)
	case hclog.Error:
		l.logger.Error(msg, args...)
	default:
		l.logger.Info(msg, args...)
	}
}

func (l *hcLogger) Trace(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *hcLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *hcLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *hcLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *hcLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *hcLogger) IsTrace() bool { return false }
func (l *hcLogger) IsDebug() bool { return true }
func (l *hcLogger) IsInfo() bool  { return true }
func (l *hcLogger) IsWarn() bool  { return true }
func (l *hcLogger) IsError() bool { return true }

func (l *hcLogger) ImpliedArgs() []any { return nil }

func (l *hcLogger) With(args ...any) hclog.Logger {
	return &hcLogger{base: l.base, logger: l.logger.With(args...), name: l.name}
}

func (l *hcLogger) Name() string { return l.name }

func (l *hcLogger) Named(name string) hclog.Logger {
	return newHCLogger(l.base, l.name+"."+name)
}

func (l *hcLogger) ResetNamed(name string) hclog.Logger {
	return newHCLogger(l.base, name)
}

func (l *hcLogger) SetLevel(hclog.Level) {}

func (l *hcLogger) GetLevel() hclog.Level { return hclog.Debug }

func (l *hcLogger) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.New(l.StandardWriter(opts), "", 0)
}

func (l *hcLogger) StandardWriter(*hclog.StandardLoggerOptions) io.Writer {
	return &levelWriter{logger: l}
}

// levelWriter turns "[LEVEL] text" lines written by a standard logger into
// leveled records.
type levelWriter struct {
	logger hclog.Logger
}

var levelPrefixes = []struct {
	prefix []byte
	level  hclog.Level
}{
	{[]byte("[TRACE] "), hclog.Trace},
	{[]byte("[DEBUG] "), hclog.Debug},
	{[]byte("[INFO] "), hclog.Info},
	{[]byte("[WARN] "), hclog.Warn},
	{[]byte("[ERR] "), hclog.Error},
	{[]byte("[ERROR] "), hclog.Error},
}

// Write implements io.Writer.
func (w *levelWriter) Write(p []byte) (int, error) {
	line := bytes.TrimSpace(p)
	level := hclog.Info
	for _, lp := range levelPrefixes {
		if bytes.HasPrefix(line, lp.prefix) {
			level = lp.level
			line = line[len(lp.prefix):]
			break
		}
	}
	w.logger.Log(level, string(line))
	return len(p), nil
}

var _ hclog.Logger = (*hcLogger)(nil)
