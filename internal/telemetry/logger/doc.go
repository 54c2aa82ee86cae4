// Package logger builds the node's slog logger.
//
//   - JSON (default) or text output
//   - a process-wide level that can change at runtime
//   - redaction of secret-looking attributes (gossip keys, passwords)
//   - context-scoped fields: message id, service id, gateway
package logger
