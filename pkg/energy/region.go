package energy

import "strings"

// Region aggregates the entities covered by one geographic area of the
// supply system. Regions are bookkeeping only; they do not participate
// in the grouping engine.
type Region struct {
	// Name identifies the region. Use typical region names and english
	// country names where possible. Must be non-empty before the code
	// is derived.
	Name string

	// Geom is the region geometry as WKT, a polygon or multi-polygon.
	Geom string

	code     string
	entities []Entity
}

// NewRegion creates a region with the given name and WKT geometry.
func NewRegion(name, geom string) *Region {
	return &Region{Name: name, Geom: geom}
}

// Entities returns the entities assigned to the region.
func (r *Region) Entities() []Entity {
	return r.entities
}

// AddEntities assigns entities to the region and back-references the
// region on each entity.
func (r *Region) AddEntities(entities []Entity) {
	r.entities = append(r.entities, entities...)
	for _, e := range entities {
		e.addRegion(r)
	}
}

// Code returns the short code of the region, deriving it from the name
// on first use: the first character of each of the (at most two) name
// words upper-cased, followed by the next two characters. Deriving a
// code from an empty name is a caller error.
func (r *Region) Code() string {
	if r.code != "" {
		return r.code
	}
	parts := strings.SplitN(strings.ReplaceAll(r.Name, "_", " "), " ", 2)
	var sb strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(part[:1]))
		end := 3
		if len(part) < end {
			end = len(part)
		}
		sb.WriteString(part[1:end])
	}
	r.code = sb.String()
	return r.code
}

// SetCode overrides the derived short code.
func (r *Region) SetCode(code string) {
	r.code = code
}
