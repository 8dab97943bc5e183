// Package stores provides persistent storage for entity definitions and
// timeseries data. The default implementation uses SQLite via the pure-Go
// modernc.org/sqlite driver, so no cgo toolchain is required.
//
// Entity attributes and series points are stored as JSON blobs, which keeps
// the schema stable while entity types evolve. Schema migrations are embedded
// in the binary and applied with golang-migrate.
package stores
