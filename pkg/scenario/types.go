package scenario

// Scenario is the top-level description of one energy system.
type Scenario struct {
	// Name identifies the scenario.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Description is free-form text.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Simulation configures the solver run.
	Simulation SimulationConfig `yaml:"simulation" json:"simulation"`

	// Regions lists the geographic regions entities can belong to.
	Regions []RegionConfig `yaml:"regions,omitempty" json:"regions,omitempty" validate:"dive"`

	// Buses lists the balance buses of the system.
	Buses []BusConfig `yaml:"buses" json:"buses" validate:"required,min=1,dive"`

	// Components lists the components attached to buses.
	Components []ComponentConfig `yaml:"components,omitempty" json:"components,omitempty" validate:"dive"`

	// Groupings lists user-defined grouping rules applied on top of the
	// default identity grouping.
	Groupings []GroupingRule `yaml:"groupings,omitempty" json:"groupings,omitempty" validate:"dive"`
}

// SimulationConfig configures the optimization run.
type SimulationConfig struct {
	// Solver names the backend used to solve the system.
	Solver string `yaml:"solver,omitempty" json:"solver,omitempty"`

	// Timesteps is the number of timesteps in the horizon.
	Timesteps int `yaml:"timesteps" json:"timesteps" validate:"required,min=1"`

	// Debug enables debug output from the solver.
	Debug bool `yaml:"debug,omitempty" json:"debug,omitempty"`

	// Verbose enables verbose solver logging.
	Verbose bool `yaml:"verbose,omitempty" json:"verbose,omitempty"`

	// Duals requests dual values from the solver.
	Duals bool `yaml:"duals,omitempty" json:"duals,omitempty"`

	// Relaxed solves the relaxed problem without integer constraints.
	Relaxed bool `yaml:"relaxed,omitempty" json:"relaxed,omitempty"`

	// FastBuild skips the solver backend's standard constraint-building
	// path where the backend supports it.
	FastBuild bool `yaml:"fast_build,omitempty" json:"fast_build,omitempty"`

	// ObjectiveOptions parameterizes the solver's objective function.
	ObjectiveOptions map[string]any `yaml:"objective_options,omitempty" json:"objective_options,omitempty"`

	// SolveOptions are passed through to the solver backend.
	SolveOptions map[string]any `yaml:"solve_options,omitempty" json:"solve_options,omitempty"`
}

// RegionConfig describes one region.
type RegionConfig struct {
	// Name is the region name (e.g., "lower_saxony").
	Name string `yaml:"name" json:"name" validate:"required"`

	// Code overrides the code derived from the name.
	Code string `yaml:"code,omitempty" json:"code,omitempty"`

	// Geom is the region geometry in WKT.
	Geom string `yaml:"geom,omitempty" json:"geom,omitempty"`
}

// BusConfig describes one bus.
type BusConfig struct {
	// UID is the unique identifier of the bus.
	UID string `yaml:"uid" json:"uid" validate:"required"`

	// Carrier is the energy carrier balanced on this bus.
	Carrier string `yaml:"carrier" json:"carrier" validate:"required"`

	// Region names the region this bus belongs to.
	Region string `yaml:"region,omitempty" json:"region,omitempty"`
}

// ComponentConfig describes one component.
type ComponentConfig struct {
	// UID is the unique identifier of the component.
	UID string `yaml:"uid" json:"uid" validate:"required"`

	// Type is the component type (e.g., "source", "sink", "transformer").
	Type string `yaml:"type" json:"type" validate:"required"`

	// Inputs lists bus UIDs the component draws from.
	Inputs []string `yaml:"inputs,omitempty" json:"inputs,omitempty"`

	// Outputs lists bus UIDs the component feeds into.
	Outputs []string `yaml:"outputs,omitempty" json:"outputs,omitempty"`

	// Region names the region this component belongs to.
	Region string `yaml:"region,omitempty" json:"region,omitempty"`

	// Attrs holds component-specific parameters.
	Attrs map[string]any `yaml:"attrs,omitempty" json:"attrs,omitempty"`
}

// GroupingRule is a named Starlark grouping rule.
type GroupingRule struct {
	// Name is the grouping name, unique within the scenario.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Rule is a Starlark script defining a key(entity) function.
	Rule string `yaml:"rule" json:"rule" validate:"required"`
}
