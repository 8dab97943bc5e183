package policy

import (
	"time"
)

// BuiltinPolicies returns all built-in lint policies.
func BuiltinPolicies() []Policy {
	return []Policy{
		shadowedUIDPolicy(),
		isolatedComponentPolicy(),
		sinkDemandPolicy(),
	}
}

// shadowedUIDPolicy flags uids declared more than once. Later
// declarations replace earlier ones, which is legal but usually a
// mistake in hand-written scenarios.
func shadowedUIDPolicy() Policy {
	return Policy{
		Name:        "shadowed-uid",
		Description: "Flags uids declared more than once; the later declaration silently replaces the earlier one",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"uids", "hygiene"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package openwatt.policies.uids

import rego.v1

deny contains violation if {
	bus := input.scenario.buses[i]
	other := input.scenario.buses[j]
	i < j
	bus.uid == other.uid
	violation := {
		"message": sprintf("bus uid '%s' is declared more than once; the later declaration replaces the earlier one", [bus.uid]),
		"severity": "warning",
		"resource": bus.uid,
	}
}

deny contains violation if {
	comp := input.scenario.components[i]
	other := input.scenario.components[j]
	i < j
	comp.uid == other.uid
	violation := {
		"message": sprintf("component uid '%s' is declared more than once; the later declaration replaces the earlier one", [comp.uid]),
		"severity": "warning",
		"resource": comp.uid,
	}
}

deny contains violation if {
	bus := input.scenario.buses[_]
	comp := input.scenario.components[_]
	bus.uid == comp.uid
	violation := {
		"message": sprintf("uid '%s' is declared as both a bus and a component; the component replaces the bus", [bus.uid]),
		"severity": "warning",
		"resource": bus.uid,
	}
}
`,
	}
}

// isolatedComponentPolicy flags components with no connections. An
// unconnected component never participates in a balance and is almost
// certainly a wiring mistake.
func isolatedComponentPolicy() Policy {
	return Policy{
		Name:        "isolated-component",
		Description: "Flags components with neither inputs nor outputs",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"topology"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package openwatt.policies.topology

import rego.v1

deny contains violation if {
	comp := input.scenario.components[_]
	not comp.inputs
	not comp.outputs
	violation := {
		"message": sprintf("component '%s' has neither inputs nor outputs and can never participate in a balance", [comp.uid]),
		"severity": "error",
		"resource": comp.uid,
	}
}
`,
	}
}

// sinkDemandPolicy flags sinks without a demand attribute. A sink with
// no demand draws nothing and contributes nothing to dispatch.
func sinkDemandPolicy() Policy {
	return Policy{
		Name:        "sink-demand",
		Description: "Flags sink components without a demand attribute",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"attributes", "dispatch"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package openwatt.policies.attributes

import rego.v1

deny contains violation if {
	comp := input.scenario.components[_]
	comp.type == "sink"
	not comp.attrs.demand
	violation := {
		"message": sprintf("sink '%s' has no demand attribute and will draw nothing", [comp.uid]),
		"severity": "warning",
		"resource": comp.uid,
	}
}
`,
	}
}
