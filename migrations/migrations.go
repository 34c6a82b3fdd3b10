// Package migrations embeds the SQL schema so tests and tooling can apply
// it without filesystem assumptions.
package migrations

import _ "embed"

//go:embed 001_core.sql
var Core string
