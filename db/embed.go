// Package db embeds the SQL schema applied at startup.
package db

import _ "embed"

// Schema holds the idempotent DDL for the store's tables. It is applied on
// every boot, so every statement is CREATE IF NOT EXISTS style.
//
//go:embed migrations/001_schema.sql
var Schema string
