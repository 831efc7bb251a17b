// Package tokens implements the secure token store: an opaque persistent
// key-value store for bearer tokens, encrypted at rest. A fixed key exists
// per credential type (user, gym-admin, staff).
package tokens
