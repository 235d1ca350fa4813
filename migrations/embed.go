// Package migrations embeds the SQL migrations so the worker binary can apply them without a checkout.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file in this directory
//
//go:embed *.sql
var FS embed.FS
