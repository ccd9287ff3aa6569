package store

import _ "embed"

// Schema is the institution DDL, applied by deployment tooling and the
// integration test harness.
//
//go:embed schema.sql
var Schema string
