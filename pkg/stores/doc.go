// Package stores persists run history in SQLite. It records one row per
// Execute call and one row per executed pipeline; documents themselves are
// never stored. Schema changes are applied with embedded golang-migrate
// migrations.
package stores
