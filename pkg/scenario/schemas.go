package scenario

import (
	"context"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry manages CUE schemas for scenario validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	ctx := cuecontext.New()
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	sr.registerBuiltInSchemas()

	return sr
}

// registerBuiltInSchemas registers all built-in schemas.
func (sr *SchemaRegistry) registerBuiltInSchemas() {
	sr.RegisterSchema("scenario", builtinScenarioSchema)
	sr.RegisterSchema("bus", builtinBusSchema)
	sr.RegisterSchema("component", builtinComponentSchema)
	sr.RegisterSchema("grouping", builtinGroupingSchema)
}

// RegisterSchema registers a CUE schema with the given name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data any) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	// Schemas are written as a single #Definition; unify the data with the
	// definition itself, not the enclosing file value.
	constraint := schema
	if it, err := schema.Fields(cue.Definitions(true)); err == nil {
		for it.Next() {
			if it.Selector().IsDefinition() {
				constraint = it.Value()
				break
			}
		}
	}

	unified := constraint.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	return names
}

// ValidateBus validates a bus definition against the bus schema.
func (sr *SchemaRegistry) ValidateBus(ctx context.Context, bus BusConfig) error {
	return sr.ValidateAgainstSchema(ctx, "bus", bus)
}

// ValidateComponent validates a component definition against the component schema.
func (sr *SchemaRegistry) ValidateComponent(ctx context.Context, component ComponentConfig) error {
	return sr.ValidateAgainstSchema(ctx, "component", component)
}

// ValidateGrouping validates a grouping rule against the grouping schema.
func (sr *SchemaRegistry) ValidateGrouping(ctx context.Context, rule GroupingRule) error {
	return sr.ValidateAgainstSchema(ctx, "grouping", rule)
}

// Built-in schema definitions

const builtinScenarioSchema = `
// Scenario schema for top-level scenario documents
#Scenario: {
	// Name identifies the scenario
	name: string & =~"^[a-zA-Z0-9_-]+$"

	// Description is free-form text
	description?: string

	// Simulation configures the solver run
	simulation: {
		solver?: string
		timesteps: int & >0
		debug?: bool
		verbose?: bool
		duals?: bool
		relaxed?: bool
		fast_build?: bool
		objective_options?: {...}
		solve_options?: {...}
	}

	regions?: [...]
	buses: [...]
	components?: [...]
	groupings?: [...]
}
`

const builtinBusSchema = `
// Bus schema for balance bus definitions
#Bus: {
	// UID is the unique identifier of the bus
	uid: string & =~"^[a-zA-Z0-9_.-]+$"

	// Carrier is the energy carrier balanced on this bus
	carrier: string & !=""

	// Region names the region this bus belongs to
	region?: string
}
`

const builtinComponentSchema = `
// Component schema for component definitions
#Component: {
	// UID is the unique identifier of the component
	uid: string & =~"^[a-zA-Z0-9_.-]+$"

	// Type is the component type
	type: "source" | "sink" | "transformer" | "storage" | "transport"

	// Inputs lists bus UIDs the component draws from
	inputs?: [...string]

	// Outputs lists bus UIDs the component feeds into
	outputs?: [...string]

	// Region names the region this component belongs to
	region?: string

	// Attrs holds component-specific parameters
	attrs?: {...}
}
`

const builtinGroupingSchema = `
// Grouping schema for grouping rule definitions
#Grouping: {
	// Name is the grouping name
	name: string & =~"^[a-zA-Z0-9_-]+$"

	// Rule is a Starlark script defining key(entity)
	rule: string & !=""
}
`
