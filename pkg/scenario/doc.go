// Package scenario loads, validates, and builds energy system scenarios.
//
// A scenario is a YAML document describing the buses, components, regions,
// simulation parameters, and grouping rules of one energy system. Loading
// goes through three stages: YAML decoding, structural validation against
// embedded CUE schemas plus struct tags, and finally construction of a
// live energy.EnergySystem via Build.
//
// Grouping rules are small Starlark scripts. Each rule script defines a
// key(entity) function that receives an entity record and returns None,
// a string, or a list of strings, which decides the group buckets the
// entity lands in.
package scenario
