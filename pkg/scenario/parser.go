package scenario

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Parser loads and validates scenario documents.
type Parser struct {
	validate *validator.Validate
	schemas  *SchemaRegistry
}

// NewParser creates a parser with built-in schemas.
func NewParser() *Parser {
	return &Parser{
		validate: validator.New(),
		schemas:  NewSchemaRegistry(),
	}
}

// Schemas exposes the schema registry, mainly for registering custom
// schemas before parsing.
func (p *Parser) Schemas() *SchemaRegistry {
	return p.schemas
}

// ParseFile reads and validates a scenario from a YAML file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return p.Parse(ctx, data)
}

// Parse decodes and validates a scenario from YAML bytes.
func (p *Parser) Parse(ctx context.Context, data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}

	if err := p.Validate(ctx, &sc); err != nil {
		return nil, err
	}

	return &sc, nil
}

// Validate checks a scenario against struct tags, CUE schemas, and
// cross-reference rules.
func (p *Parser) Validate(ctx context.Context, sc *Scenario) error {
	if err := p.validate.Struct(sc); err != nil {
		return fmt.Errorf("scenario %s failed validation: %w", sc.Name, err)
	}

	if err := p.schemas.ValidateAgainstSchema(ctx, "scenario", sc); err != nil {
		return fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	for _, bus := range sc.Buses {
		if err := p.schemas.ValidateBus(ctx, bus); err != nil {
			return fmt.Errorf("bus %s: %w", bus.UID, err)
		}
	}
	for _, comp := range sc.Components {
		if err := p.schemas.ValidateComponent(ctx, comp); err != nil {
			return fmt.Errorf("component %s: %w", comp.UID, err)
		}
	}
	for _, rule := range sc.Groupings {
		if err := p.schemas.ValidateGrouping(ctx, rule); err != nil {
			return fmt.Errorf("grouping %s: %w", rule.Name, err)
		}
	}

	return p.validateReferences(sc)
}

// validateReferences checks cross-references between scenario sections.
// Duplicate UIDs are allowed on purpose: re-declaring a UID replaces the
// earlier entity when the system is built.
func (p *Parser) validateReferences(sc *Scenario) error {
	buses := make(map[string]struct{}, len(sc.Buses))
	for _, bus := range sc.Buses {
		buses[bus.UID] = struct{}{}
	}

	regions := make(map[string]struct{}, len(sc.Regions))
	for _, region := range sc.Regions {
		if _, dup := regions[region.Name]; dup {
			return fmt.Errorf("region %s declared twice", region.Name)
		}
		regions[region.Name] = struct{}{}
	}

	checkRegion := func(uid, region string) error {
		if region == "" {
			return nil
		}
		if _, ok := regions[region]; !ok {
			return fmt.Errorf("entity %s references unknown region %s", uid, region)
		}
		return nil
	}

	for _, bus := range sc.Buses {
		if err := checkRegion(bus.UID, bus.Region); err != nil {
			return err
		}
	}

	for _, comp := range sc.Components {
		for _, in := range comp.Inputs {
			if _, ok := buses[in]; !ok {
				return fmt.Errorf("component %s input references unknown bus %s", comp.UID, in)
			}
		}
		for _, out := range comp.Outputs {
			if _, ok := buses[out]; !ok {
				return fmt.Errorf("component %s output references unknown bus %s", comp.UID, out)
			}
		}
		if err := checkRegion(comp.UID, comp.Region); err != nil {
			return err
		}
	}

	ruleNames := make(map[string]struct{}, len(sc.Groupings))
	for _, rule := range sc.Groupings {
		if rule.Name == "uid" {
			return fmt.Errorf("grouping name uid is reserved for the default grouping")
		}
		if _, dup := ruleNames[rule.Name]; dup {
			return fmt.Errorf("grouping %s declared twice", rule.Name)
		}
		ruleNames[rule.Name] = struct{}{}
	}

	return nil
}
