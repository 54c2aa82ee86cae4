package logger

import (
	"log/slog"
	"strings"
)

// Attribute keys containing any of these are redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"gossip_key",
	"private_key",
	"credential",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if a.Value.String() != "" && sensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			redacted[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	}
	return a
}

func sensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(key, pattern) {
			return true
		}
	}
	return false
}
