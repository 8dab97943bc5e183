package energy

import "fmt"

// Group is one bucket in the group mapping: either a single assigned
// entity (unique groupings, the default uid grouping among them) or a
// set of member entities (non-unique groupings).
type Group struct {
	entity  Entity
	members map[Entity]struct{}
}

// Entity returns the assigned entity of a singleton bucket, or nil for
// a set bucket.
func (g *Group) Entity() Entity { return g.entity }

// Members returns the entities in the bucket. For a singleton bucket it
// returns the single assigned entity. Order is unspecified.
func (g *Group) Members() []Entity {
	if g.entity != nil {
		return []Entity{g.entity}
	}
	out := make([]Entity, 0, len(g.members))
	for e := range g.members {
		out = append(out, e)
	}
	return out
}

// Contains reports whether the entity is a member of the bucket.
func (g *Group) Contains(e Entity) bool {
	if g.entity != nil {
		return g.entity == e
	}
	_, ok := g.members[e]
	return ok
}

// Len returns the number of members in the bucket.
func (g *Group) Len() int {
	if g.entity != nil {
		return 1
	}
	return len(g.members)
}

// assign sets the bucket's entity directly. Last writer wins.
func (g *Group) assign(e Entity) { g.entity = e }

// insert adds the entity to the bucket's member set.
func (g *Group) insert(e Entity) {
	if g.members == nil {
		g.members = make(map[Entity]struct{})
	}
	g.members[e] = struct{}{}
}

// Groups maps group keys to buckets.
type Groups map[string]*Group

// Entity returns the assigned entity under key, or nil when the key is
// absent or holds a set bucket.
func (gs Groups) Entity(key string) Entity {
	g, ok := gs[key]
	if !ok {
		return nil
	}
	return g.Entity()
}

// Members returns the members under key, or nil when the key is absent.
func (gs Groups) Members(key string) []Entity {
	g, ok := gs[key]
	if !ok {
		return nil
	}
	return g.Members()
}

// fold incorporates one entity into the mapping under every grouping, in
// grouping order. Folding is idempotent per entity, so re-applying a
// fold after an earlier failed force cannot corrupt the mapping.
func (gs Groups) fold(e Entity, groupings []Grouping) error {
	for _, grouping := range groupings {
		keys, err := grouping.Classify(e)
		if err != nil {
			return NewGroupingError(
				fmt.Sprintf("grouping %q failed", grouping.Name()), err,
			).WithEntity(e.UID()).WithOperation("fold")
		}
		if keys.None() {
			continue
		}
		for _, key := range keys.Keys() {
			g, ok := gs[key]
			if !ok {
				g = &Group{}
				gs[key] = g
			}
			if grouping.Unique() {
				g.assign(e)
			} else {
				g.insert(e)
			}
		}
	}
	return nil
}
