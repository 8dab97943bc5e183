package energy

import "testing"

func TestRegion_CodeDerivation(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Lower Saxony", "LowSax"},
		{"lower_saxony", "LowSax"},
		{"Bavaria", "Bav"},
		{"North Rhine Westphalia", "NorRhi"},
		{"at", "At"},
	}

	for _, tt := range tests {
		r := NewRegion(tt.name, "")
		if got := r.Code(); got != tt.want {
			t.Errorf("Code(%q): expected %q, got %q", tt.name, tt.want, got)
		}
	}
}

func TestRegion_ExplicitCodeWins(t *testing.T) {
	r := NewRegion("Lower Saxony", "")
	r.SetCode("NI")
	if got := r.Code(); got != "NI" {
		t.Errorf("Expected the explicit code, got %q", got)
	}
}

func TestRegion_AddEntitiesBackReferences(t *testing.T) {
	r := NewRegion("Bavaria", "POLYGON((0 0,1 0,1 1,0 0))")
	bus := NewBus(nil, "b1", "electricity")
	comp := NewComponent(nil, "c1", "sink")

	r.AddEntities([]Entity{bus, comp})

	if len(r.Entities()) != 2 {
		t.Fatalf("Expected two entities in the region, got %d", len(r.Entities()))
	}
	if len(bus.Regions()) != 1 || bus.Regions()[0] != r {
		t.Errorf("Expected the region back-referenced on the bus")
	}

	// Re-adding does not duplicate the back-reference.
	r.AddEntities([]Entity{bus})
	if len(bus.Regions()) != 1 {
		t.Errorf("Expected a single back-reference, got %d", len(bus.Regions()))
	}
}
