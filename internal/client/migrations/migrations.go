// Package migrations embeds the goose migrations for the local client
// database (token store and snapshot cache tables).
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
