package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Engine configures the stub calculation engine.
	Engine EngineStub `yaml:"engine"`

	// Flow contains the steps to execute, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// EngineStub is what the stub engine prints and how it exits.
type EngineStub struct {
	Output   string `yaml:"output"`
	ExitCode int    `yaml:"exit_code"`
}

// FlowStep is one service operation.
type FlowStep struct {
	// Op is one of compute, get, list, delete.
	Op string `yaml:"op"`

	// Args are the operation arguments.
	Args map[string]any `yaml:"args"`

	// Expect, when set, is checked against the step outcome.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected step outcome.
type ExpectClause struct {
	// Outcome is one of the Outcome* constants.
	Outcome string `yaml:"outcome"`

	// Result is a subset match against the step result.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is sheet_count, engine_calls or final_sheet.
	Type string `yaml:"type"`

	// Count is the expected count (sheet_count, engine_calls).
	Count int `yaml:"count,omitempty"`

	// Where filters sheet_count by categoria_id and provincia.
	Where map[string]string `yaml:"where,omitempty"`

	// ID selects the sheet for final_sheet.
	ID int64 `yaml:"id,omitempty"`

	// Expect is a subset match for final_sheet.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Operation and assertion names.
const (
	OpCompute = "compute"
	OpGet     = "get"
	OpList    = "list"
	OpDelete  = "delete"

	AssertSheetCount  = "sheet_count"
	AssertEngineCalls = "engine_calls"
	AssertFinalSheet  = "final_sheet"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict fields catch typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		switch step.Op {
		case OpCompute, OpList:
		case OpGet, OpDelete:
			if _, ok := step.Args["id"]; !ok {
				return fmt.Errorf("flow[%d]: %s requires args.id", i, step.Op)
			}
		case "":
			return fmt.Errorf("flow[%d]: op is required", i)
		default:
			return fmt.Errorf("flow[%d]: unknown op %q", i, step.Op)
		}
		if step.Expect != nil && step.Expect.Outcome == "" {
			return fmt.Errorf("flow[%d].expect: outcome is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertSheetCount, AssertEngineCalls:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertFinalSheet:
		if a.ID <= 0 {
			return fmt.Errorf("assertions[%d]: id is required for final_sheet", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_sheet", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
