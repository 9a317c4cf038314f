package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dqb/internal/query"
	"github.com/roach88/dqb/internal/queryir"
	"github.com/roach88/dqb/internal/querysql"
)

// Scenario defines a request scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path of a schema configuration file (JSON, YAML or CUE).
	// Relative paths resolve against the scenario file.
	Schema string `yaml:"schema"`

	// Fixture is the path of a SQL script run on the empty database.
	Fixture string `yaml:"fixture,omitempty"`

	// AccessLevel is the caller's access level.
	AccessLevel int `yaml:"access_level,omitempty"`

	// Limits overrides the compiler limits. Zero fields keep their defaults.
	Limits querysql.Limits `yaml:"limits,omitempty"`

	// ExtraKeys names the key columns of extra tables whose columns are not
	// named after their dependency fields.
	ExtraKeys map[string][]string `yaml:"extra_keys,omitempty"`

	// Steps are run in order.
	Steps []Step `yaml:"steps"`
}

// Step is one request.
type Step struct {
	Name    string      `yaml:"name"`
	Request RequestSpec `yaml:"request"`

	// Keep disables stripping of correlation-only fields.
	Keep bool `yaml:"keep,omitempty"`

	// Expect validates the outcome. If nil, nothing is checked.
	Expect *Expect `yaml:"expect,omitempty"`
}

// RequestSpec is the YAML form of query.Request. Filters and orders keep
// the key order of the document.
type RequestSpec struct {
	Fields        string    `yaml:"fields"`
	Filter        yaml.Node `yaml:"filter,omitempty"`
	DefaultFilter yaml.Node `yaml:"default_filter,omitempty"`
	Order         yaml.Node `yaml:"order,omitempty"`
	Page          int       `yaml:"page,omitempty"`
	ItemsPerPage  int       `yaml:"items_per_page,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Error is the expected error code (e.g. "E402"). When set, nothing
	// else is checked.
	Error string `yaml:"error,omitempty"`

	// SQL is the exact rendered statement.
	SQL string `yaml:"sql,omitempty"`

	// Params are the bound parameters, compared by value.
	Params []any `yaml:"params,omitempty"`

	// Count is the expected total.
	Count *int64 `yaml:"count,omitempty"`

	// Records are compared in order. Each expected record is a subset match;
	// the number of records must be equal.
	Records []map[string]any `yaml:"records,omitempty"`
}

// Request converts the YAML request into a query.Request.
func (r RequestSpec) Request() (query.Request, error) {
	req := query.Request{
		Fields:       r.Fields,
		Page:         r.Page,
		ItemsPerPage: r.ItemsPerPage,
	}

	var err error
	if req.Filter, err = nodeValue(&r.Filter); err != nil {
		return query.Request{}, fmt.Errorf("filter: %w", err)
	}
	if req.DefaultFilter, err = nodeValue(&r.DefaultFilter); err != nil {
		return query.Request{}, fmt.Errorf("default_filter: %w", err)
	}
	if req.Order, err = nodeValue(&r.Order); err != nil {
		return query.Request{}, fmt.Errorf("order: %w", err)
	}
	return req, nil
}

// nodeValue returns nil for an absent node, the text of a string scalar,
// and ordered loose data otherwise.
func nodeValue(node *yaml.Node) (any, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!str" {
		return node.Value, nil
	}
	return queryir.FromYAML(node)
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Schema and fixture paths are resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	scenario.Schema = resolve(base, scenario.Schema)
	scenario.Fixture = resolve(base, scenario.Fixture)
	return scenario, nil
}

// ParseScenario parses scenario YAML. Paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "step:" vs "steps:".
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

// IsScenario reports whether data looks like a scenario document: a YAML
// mapping with a steps key. Schema files kept next to scenarios are not.
func IsScenario(data []byte) bool {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	_, ok := doc["steps"]
	return ok
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if err := s.Limits.Validate(); err != nil {
		return fmt.Errorf("limits: %w", err)
	}

	for i, step := range s.Steps {
		if step.Expect == nil || step.Expect.Error == "" {
			continue
		}
		e := step.Expect
		if e.SQL != "" || e.Params != nil || e.Count != nil || e.Records != nil {
			return fmt.Errorf("step %d: expect.error cannot be combined with other expectations", i+1)
		}
	}

	return nil
}
