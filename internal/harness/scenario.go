package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is one YAML-defined conformance scenario: a sequence of lifecycle
// operations with expected outcomes, plus final-state expectations.
type Scenario struct {
	// Name uniquely identifies the scenario; the golden file shares it.
	Name string `yaml:"name"`

	// Description explains what the scenario exercises.
	Description string `yaml:"description,omitempty"`

	// Steps run in order against a fresh database.
	Steps []Step `yaml:"steps"`

	// Expect lists final-state checks evaluated after all steps.
	Expect []Expectation `yaml:"expect,omitempty"`
}

// Step is one lifecycle operation. Op selects the operation; the other
// fields parameterize it. Case names a scenario-local alias: "file" and
// "create" bind it, later steps reference it.
type Step struct {
	Op    string `yaml:"op"`
	Actor string `yaml:"actor"` // "<user-id>:<role>"
	Case  string `yaml:"case"`

	// Creation fields.
	Title  string `yaml:"title,omitempty"`
	Type   string `yaml:"type,omitempty"`
	Court  string `yaml:"court,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`

	// Operation-specific fields.
	Reason string `yaml:"reason,omitempty"`
	Date   string `yaml:"date,omitempty"` // YYYY-MM-DD
	Judge  string `yaml:"judge,omitempty"`
	Text   string `yaml:"text,omitempty"`
	Venue  string `yaml:"venue,omitempty"`
	Doc    string `yaml:"doc,omitempty"` // document title (attach) or alias (seal/sign)

	// WantError expects the step to fail with the given error code
	// (validation, unauthorized, invalid_transition, not_found). Empty
	// means the step must succeed.
	WantError string `yaml:"want_error,omitempty"`
}

// Expectation checks one case's final state.
type Expectation struct {
	Case    string `yaml:"case"`
	Status  string `yaml:"status,omitempty"`
	Rulings int    `yaml:"rulings,omitempty"`
}

// LoadScenario reads one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s: no steps", sc.Name)
	}
	return &sc, nil
}

// LoadScenarios reads every *.yaml scenario in dir, sorted by filename.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		sc, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}
