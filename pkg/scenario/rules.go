package scenario

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/openwatt/openwatt/pkg/energy"
)

// RuleEvaluator compiles Starlark grouping rules into energy groupings.
// Each rule script must define a key(entity) function. The entity argument
// is a struct with uid, kind, type, carrier, and regions attributes. The
// function returns None to skip the entity, a string for a single bucket,
// or a list of strings for several buckets.
type RuleEvaluator struct{}

// NewRuleEvaluator creates a rule evaluator.
func NewRuleEvaluator() *RuleEvaluator {
	return &RuleEvaluator{}
}

// Compile turns a grouping rule into an energy.Grouping. The script is
// executed once here; errors in the key function itself surface later,
// when the grouping is applied.
func (re *RuleEvaluator) Compile(rule GroupingRule) (energy.Grouping, error) {
	if rule.Name == "" {
		return nil, fmt.Errorf("grouping rule requires a name")
	}

	thread := &starlark.Thread{
		Name: "openwatt",
		Print: func(_ *starlark.Thread, _ string) {
			// Rule scripts may not print.
		},
	}

	predeclared := starlark.StringDict{
		"struct": starlarkstruct.Default,
	}

	globals, err := starlark.ExecFile(thread, rule.Name+".star", rule.Rule, predeclared)
	if err != nil {
		return nil, fmt.Errorf("failed to compile grouping rule %s: %w", rule.Name, err)
	}

	keyFn, ok := globals["key"]
	if !ok {
		return nil, fmt.Errorf("grouping rule %s does not define key(entity)", rule.Name)
	}
	callable, ok := keyFn.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("grouping rule %s: key is not callable", rule.Name)
	}

	classify := func(e energy.Entity) (energy.GroupKeys, error) {
		arg := entityToStarlark(e)

		t := &starlark.Thread{Name: "openwatt"}
		res, err := starlark.Call(t, callable, starlark.Tuple{arg}, nil)
		if err != nil {
			return energy.NoKeys(), fmt.Errorf("rule %s: %w", rule.Name, err)
		}

		return resultToKeys(rule.Name, res)
	}

	return energy.NewGrouping(rule.Name, classify), nil
}

// CompileAll compiles every rule, failing on the first bad script.
func (re *RuleEvaluator) CompileAll(rules []GroupingRule) ([]energy.Grouping, error) {
	groupings := make([]energy.Grouping, 0, len(rules))
	for _, rule := range rules {
		g, err := re.Compile(rule)
		if err != nil {
			return nil, err
		}
		groupings = append(groupings, g)
	}
	return groupings, nil
}

// entityToStarlark exposes an entity to rule scripts as a struct value.
func entityToStarlark(e energy.Entity) starlark.Value {
	fields := starlark.StringDict{
		"uid":     starlark.String(e.UID()),
		"kind":    starlark.String(string(e.Kind())),
		"type":    starlark.String(""),
		"carrier": starlark.String(""),
	}

	switch v := e.(type) {
	case *energy.Bus:
		fields["carrier"] = starlark.String(v.Carrier)
	case *energy.Component:
		fields["type"] = starlark.String(v.Type)
	}

	regions := e.Regions()
	names := make([]starlark.Value, 0, len(regions))
	for _, r := range regions {
		names = append(names, starlark.String(r.Name))
	}
	fields["regions"] = starlark.NewList(names)

	return starlarkstruct.FromStringDict(starlarkstruct.Default, fields)
}

// resultToKeys converts a key() return value into group keys.
func resultToKeys(ruleName string, v starlark.Value) (energy.GroupKeys, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return energy.NoKeys(), nil
	case starlark.String:
		return energy.OneKey(string(val)), nil
	case *starlark.List:
		keys := make([]string, 0, val.Len())
		for i := 0; i < val.Len(); i++ {
			s, ok := val.Index(i).(starlark.String)
			if !ok {
				return energy.NoKeys(), fmt.Errorf("rule %s: list element %d is %s, want string", ruleName, i, val.Index(i).Type())
			}
			keys = append(keys, string(s))
		}
		return energy.ManyKeys(keys...), nil
	default:
		return energy.NoKeys(), fmt.Errorf("rule %s: key returned %s, want None, string, or list of strings", ruleName, v.Type())
	}
}
