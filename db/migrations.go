// Package db embeds the service's goose migrations so the binary can
// apply them on startup without depending on a file layout relative to
// the working directory the process was launched from.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
