// Package cli provides the interactive Spotter command-line client.
//
// It wires configuration, local storage, the REST API client, and the two
// event-stream connections into an interactive REPL. Typical flow: restore
// the previous session from local storage, load the bootstrap snapshot
// (cache first, network second), and execute user commands.
//
// Key features:
//   - Login / Register / Logout
//   - Show the current user and the snapshot summary
//   - Feed and inbox views over the cached snapshot
//   - Force-refresh the snapshot
//   - Watch live events and open a conversation channel
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
