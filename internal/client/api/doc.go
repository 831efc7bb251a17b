// Package api implements the HTTP client for the Spotter backend: auth
// endpoints, the consolidated bootstrap fetch, and bearer-token propagation
// for every authenticated request.
package api
