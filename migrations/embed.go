// Package migrations embeds the SQL schema and seed files so the binaries
// carry their own database setup.
package migrations

import "embed"

//go:embed sql seeds
var Files embed.FS
