// Package snapshots implements the persistent bootstrap snapshot cache: a
// single-entry, time-boxed store that lets the app render the last-known
// world state instantly while a network revalidation runs.
package snapshots
