// Package migrations embeds the goose schema migrations so they can be run
// at startup and inside integration tests without a working directory
// dependency.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
