// Package realtime maintains long-lived, authenticated event-stream
// connections to the Spotter backends. Each Manager owns one connection with
// its own reconnection state machine, listener registry, and channel
// membership; the app constructs one Manager per backend service and injects
// it where needed, so tests can substitute a fake transport.
package realtime
