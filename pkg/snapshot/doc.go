// Package snapshot persists an energy system to disk and restores it.
//
// A snapshot is a JSON document holding the entity definitions, regions,
// simulation parameters, time index, and solver results of a system.
// Grouping rules are callables and cannot be serialized; a restored
// system therefore carries only the default uid grouping unless the
// caller re-supplies rules through RestoreOptions.
//
// The default snapshot location is ~/.openwatt/dumps/es_dump.watt.
package snapshot
