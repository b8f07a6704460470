// Package migrations embeds the identity schema for goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
