package energy

// keyKind tags the shape of a grouping result.
type keyKind int

const (
	keyNone keyKind = iota
	keyOne
	keyMany
)

// GroupKeys is the result of classifying one entity under one grouping:
// no membership, a single key, or several keys. The explicit variant
// removes any ambiguity about the return shape of a grouping rule.
type GroupKeys struct {
	kind keyKind
	keys []string
}

// NoKeys reports that the entity has no membership under this grouping.
func NoKeys() GroupKeys {
	return GroupKeys{kind: keyNone}
}

// OneKey places the entity into a single group.
func OneKey(key string) GroupKeys {
	return GroupKeys{kind: keyOne, keys: []string{key}}
}

// ManyKeys places the entity into every listed group. An empty list is
// equivalent to NoKeys.
func ManyKeys(keys ...string) GroupKeys {
	if len(keys) == 0 {
		return NoKeys()
	}
	return GroupKeys{kind: keyMany, keys: keys}
}

// None reports whether the entity has no membership under the grouping.
func (k GroupKeys) None() bool { return k.kind == keyNone }

// Keys returns the group keys. Empty when None.
func (k GroupKeys) Keys() []string { return k.keys }

// Grouping classifies entities into named groups. Classify is invoked
// once per entity when the deferred group mapping is forced; a returned
// error therefore surfaces on the next Groups read, not at Add time.
type Grouping interface {
	// Name identifies the grouping in errors and logs.
	Name() string

	// Classify returns the group keys for an entity.
	Classify(Entity) (GroupKeys, error)

	// Unique reports the bucket semantics: unique groupings assign the
	// entity as the bucket's sole value (last writer wins), non-unique
	// groupings add the entity to a member set.
	Unique() bool
}

// GroupingFunc adapts a plain classification function into a non-unique
// Grouping.
type GroupingFunc struct {
	name string
	fn   func(Entity) (GroupKeys, error)
}

// NewGrouping wraps a raw classification function.
func NewGrouping(name string, fn func(Entity) (GroupKeys, error)) GroupingFunc {
	return GroupingFunc{name: name, fn: fn}
}

// GroupBy wraps a single-key function; entities land in member sets
// under the returned key.
func GroupBy(name string, fn func(Entity) string) GroupingFunc {
	return GroupingFunc{name: name, fn: func(e Entity) (GroupKeys, error) {
		return OneKey(fn(e)), nil
	}}
}

// Name implements Grouping.
func (g GroupingFunc) Name() string { return g.name }

// Classify implements Grouping.
func (g GroupingFunc) Classify(e Entity) (GroupKeys, error) { return g.fn(e) }

// Unique implements Grouping.
func (g GroupingFunc) Unique() bool { return false }

// uidGrouping is the mandatory default grouping: every entity maps to a
// singleton group keyed by its own uid, assigned directly so re-adding
// an entity with a previously seen uid replaces the stored value.
type uidGrouping struct{}

func (uidGrouping) Name() string { return "uid" }

func (uidGrouping) Classify(e Entity) (GroupKeys, error) {
	return OneKey(e.UID()), nil
}

func (uidGrouping) Unique() bool { return true }

// DefaultGrouping returns the built-in uid grouping that every
// EnergySystem applies first.
func DefaultGrouping() Grouping { return uidGrouping{} }
