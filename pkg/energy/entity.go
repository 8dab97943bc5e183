package energy

// Kind distinguishes the node types participating in an energy system.
type Kind string

const (
	// KindBus is a balance point connecting components, e.g. an
	// electricity or gas bus.
	KindBus Kind = "bus"

	// KindComponent is a producing, consuming, or converting node
	// attached to one or more buses.
	KindComponent Kind = "component"
)

// Entity is a participant in the modeled energy system. Identity is by
// uid: two entities carrying the same uid are the same member under the
// default uid grouping.
type Entity interface {
	// UID returns the unique identifier of the entity.
	UID() string

	// Kind returns the node kind.
	Kind() Kind

	// Regions returns the regions this entity belongs to.
	Regions() []*Region

	// addRegion back-references a region on the entity. Called by
	// Region.AddEntities.
	addRegion(*Region)
}

// Registrar receives newly constructed entities. EnergySystem implements
// it; entity constructors register into the Registrar they are handed
// instead of resolving an ambient global, so unrelated containers never
// couple through shared state.
type Registrar interface {
	Register(Entity)
}

// node carries the state shared by all entity kinds.
type node struct {
	uid     string
	regions []*Region
}

func (n *node) UID() string { return n.uid }

func (n *node) Regions() []*Region { return n.regions }

func (n *node) addRegion(r *Region) {
	for _, existing := range n.regions {
		if existing == r {
			return
		}
	}
	n.regions = append(n.regions, r)
}

// Bus is a balance point for a single energy carrier.
type Bus struct {
	node

	// Carrier is the transported energy carrier (e.g. "electricity",
	// "gas", "heat").
	Carrier string
}

// NewBus constructs a bus and registers it with r. A nil Registrar
// leaves the bus unregistered.
func NewBus(r Registrar, uid, carrier string) *Bus {
	b := &Bus{node: node{uid: uid}, Carrier: carrier}
	if r != nil {
		r.Register(b)
	}
	return b
}

// Kind implements Entity.
func (b *Bus) Kind() Kind { return KindBus }

// Component is a node that produces, consumes, or converts energy
// between the buses it is attached to.
type Component struct {
	node

	// Type describes the component role (e.g. "transformer", "sink",
	// "source").
	Type string

	// Inputs are the buses the component draws from.
	Inputs []*Bus

	// Outputs are the buses the component feeds into.
	Outputs []*Bus

	// Attrs holds component parameters consumed by solver backends,
	// e.g. capacities, efficiencies, or cost coefficients.
	Attrs map[string]any
}

// NewComponent constructs a component and registers it with r. A nil
// Registrar leaves the component unregistered.
func NewComponent(r Registrar, uid, typ string) *Component {
	c := &Component{node: node{uid: uid}, Type: typ}
	if r != nil {
		r.Register(c)
	}
	return c
}

// Kind implements Entity.
func (c *Component) Kind() Kind { return KindComponent }

// Connect attaches input and output buses to the component.
func (c *Component) Connect(inputs, outputs []*Bus) {
	c.Inputs = append(c.Inputs, inputs...)
	c.Outputs = append(c.Outputs, outputs...)
}

// Builder constructs entities bound to a single Registrar, keeping the
// auto-register-on-construction ergonomics without an ambient registry.
type Builder struct {
	target Registrar
}

// NewBuilder creates a builder whose entities register into target.
func NewBuilder(target Registrar) *Builder {
	return &Builder{target: target}
}

// Bus constructs and registers a bus.
func (b *Builder) Bus(uid, carrier string) *Bus {
	return NewBus(b.target, uid, carrier)
}

// Component constructs and registers a component.
func (b *Builder) Component(uid, typ string) *Component {
	return NewComponent(b.target, uid, typ)
}
