// Package pg provides PostgreSQL connectivity helpers: a retrying pgx
// pool constructor, goose migration runner, health probe and error
// classification used by the storage layer.
package pg
