package policy

import (
	"time"

	"github.com/openwatt/openwatt/pkg/scenario"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed but do
	// not block the scenario.
	SeverityWarning Severity = "warning"

	// SeverityError is for findings that block the scenario.
	SeverityError Severity = "error"
)

// Policy represents a lint rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the policy was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Violation represents a single policy finding.
type Violation struct {
	// Policy is the name of the policy that produced the finding.
	Policy string `json:"policy"`

	// Entity is the uid of the entity involved, when known.
	Entity string `json:"entity,omitempty"`

	// Message is a human-readable description of the finding.
	Message string `json:"message"`

	// Severity is the finding's severity level.
	Severity Severity `json:"severity"`
}

// Result represents the outcome of evaluating a scenario.
type Result struct {
	// Allowed indicates whether the scenario passed: no violation at
	// error severity.
	Allowed bool `json:"allowed"`

	// Violations lists all findings.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists evaluation problems (broken policies, not
	// scenario findings).
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedAt is when the evaluation ran.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Input is the document handed to Rego evaluation.
type Input struct {
	// Scenario is the scenario under lint.
	Scenario *scenario.Scenario `json:"scenario"`

	// Context carries evaluation metadata.
	Context *Context `json:"context"`
}

// Context provides evaluation context for policies.
type Context struct {
	// Environment is the deployment environment, when relevant.
	Environment string `json:"environment,omitempty"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`

	// Operation names the operation under evaluation.
	Operation string `json:"operation,omitempty"`
}
