// Package migrations ships the goose SQL files inside the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
