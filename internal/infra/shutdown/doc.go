// Package shutdown coordinates graceful node shutdown.
//
// Components register named hooks as they start; on SIGINT, SIGTERM or
// a programmatic Trigger the hooks run in reverse registration order
// under a shared timeout.
package shutdown
