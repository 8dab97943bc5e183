package energy

import (
	"fmt"
	"testing"
)

func TestGroupKeys_Variants(t *testing.T) {
	if !NoKeys().None() {
		t.Errorf("Expected NoKeys to report None")
	}
	if got := OneKey("a").Keys(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Expected a single key a, got %v", got)
	}
	if got := ManyKeys("a", "b").Keys(); len(got) != 2 {
		t.Errorf("Expected two keys, got %v", got)
	}
	if !ManyKeys().None() {
		t.Errorf("Expected an empty ManyKeys to collapse to None")
	}
}

func TestGrouping_NoneLeavesEntityOutOfKeySpace(t *testing.T) {
	busesOnly := NewGrouping("buses", func(e Entity) (GroupKeys, error) {
		if e.Kind() == KindBus {
			return OneKey("buses"), nil
		}
		return NoKeys(), nil
	})

	es := newTestSystem(t, Config{Groupings: []Grouping{busesOnly}})
	bus := NewBus(es, "b1", "electricity")
	comp := NewComponent(es, "c1", "sink")

	groups, err := es.Groups()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	bucket := groups["buses"]
	if bucket == nil {
		t.Fatalf("Expected a buses bucket")
	}
	if !bucket.Contains(bus) {
		t.Errorf("Expected the bus in the buses bucket")
	}
	if bucket.Contains(comp) {
		t.Errorf("Expected the component absent from the buses bucket")
	}

	// Still present under the default uid grouping.
	if got := groups.Entity("c1"); got != Entity(comp) {
		t.Errorf("Expected the component under its uid, got %v", got)
	}
}

func TestGrouping_ManyKeysPlacesEntityInEveryBucket(t *testing.T) {
	byCarrierAndKind := NewGrouping("carrier+kind", func(e Entity) (GroupKeys, error) {
		if b, ok := e.(*Bus); ok {
			return ManyKeys("carrier:"+b.Carrier, "kind:"+string(e.Kind())), nil
		}
		return NoKeys(), nil
	})

	es := newTestSystem(t, Config{Groupings: []Grouping{byCarrierAndKind}})
	elec := NewBus(es, "b1", "electricity")
	gas := NewBus(es, "b2", "gas")
	NewComponent(es, "c1", "sink")

	groups, err := es.Groups()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for _, key := range []string{"carrier:electricity", "kind:bus"} {
		bucket := groups[key]
		if bucket == nil {
			t.Fatalf("Expected bucket %q", key)
		}
		if !bucket.Contains(elec) {
			t.Errorf("Expected the electricity bus in bucket %q", key)
		}
	}

	if bucket := groups["carrier:electricity"]; bucket.Contains(gas) {
		t.Errorf("Expected the gas bus absent from the electricity bucket")
	}
	if bucket := groups["kind:bus"]; bucket.Len() != 2 {
		t.Errorf("Expected exactly two buses in kind:bus, got %d", bucket.Len())
	}
	if _, ok := groups["carrier:"]; ok {
		t.Errorf("Expected no bucket for the component under this grouping")
	}
}

func TestGrouping_NineBusesNineComponentsByKind(t *testing.T) {
	byKind := GroupBy("kind", func(e Entity) string { return string(e.Kind()) })

	es := newTestSystem(t, Config{Groupings: []Grouping{byKind}})

	buses := make(map[Entity]struct{})
	components := make(map[Entity]struct{})
	for i := 0; i < 9; i++ {
		buses[NewBus(es, fmt.Sprintf("Bus %d", i), "electricity")] = struct{}{}
		components[NewComponent(es, fmt.Sprintf("Component %d", i), "sink")] = struct{}{}
	}

	groups, err := es.Groups()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	busBucket := groups["bus"]
	compBucket := groups["component"]
	if busBucket == nil || compBucket == nil {
		t.Fatalf("Expected both kind buckets to exist")
	}
	if busBucket.Len() != 9 {
		t.Errorf("Expected nine buses, got %d", busBucket.Len())
	}
	if compBucket.Len() != 9 {
		t.Errorf("Expected nine components, got %d", compBucket.Len())
	}

	for _, member := range busBucket.Members() {
		if _, ok := buses[member]; !ok {
			t.Errorf("Unexpected member %s in the bus bucket", member.UID())
		}
		if compBucket.Contains(member) {
			t.Errorf("Expected buckets to be disjoint, %s is in both", member.UID())
		}
	}
	for _, member := range compBucket.Members() {
		if _, ok := components[member]; !ok {
			t.Errorf("Unexpected member %s in the component bucket", member.UID())
		}
	}
}

func TestGrouping_OrderIsDefaultFirst(t *testing.T) {
	es := newTestSystem(t, Config{Groupings: []Grouping{
		GroupBy("kind", func(e Entity) string { return string(e.Kind()) }),
	}})

	if got := es.groupings[0].Name(); got != "uid" {
		t.Errorf("Expected the default uid grouping first, got %q", got)
	}
	if len(es.groupings) != 2 {
		t.Errorf("Expected two groupings, got %d", len(es.groupings))
	}
}
