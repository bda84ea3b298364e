// Package db provides the embedded database schema and catalog seed data.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Catalog is the studio catalog (paintings and courses) in JSON form. It is
// the default catalog source and the input of cmd/seed-db.
//
//go:embed seed/catalog.json
var Catalog []byte
