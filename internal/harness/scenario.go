package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shopstate/internal/catalog"
	"github.com/roach88/shopstate/internal/engine"
	"github.com/roach88/shopstate/internal/model"
)

// Scenario is a scripted session with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Session is the session id stamped on journal entries.
	// Defaults to "test-session".
	Session string `yaml:"session,omitempty"`

	// PersistSession enables cart and wishlist persistence.
	PersistSession bool `yaml:"persist_session,omitempty"`

	// Products is the catalog the scenario runs against.
	Products []catalog.ProductDef `yaml:"products"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// SessionID returns Session, or DefaultSession when unset.
func (s *Scenario) SessionID() string {
	if s.Session == "" {
		return DefaultSession
	}
	return s.Session
}

// Step is one engine command.
type Step struct {
	// Do is the command kind (e.g. "cart.add").
	Do string `yaml:"do"`

	// Args are the command arguments.
	Args StepArgs `yaml:"args,omitempty"`

	// FailWrites makes KV writes fail while this step runs.
	FailWrites bool `yaml:"fail_writes,omitempty"`

	// Expect overrides the default expectation of success.
	Expect *Expect `yaml:"expect,omitempty"`
}

// StepArgs are the arguments a command may take.
type StepArgs struct {
	Product  string `yaml:"product,omitempty"`
	Quantity int    `yaml:"quantity,omitempty"`
	Order    int64  `yaml:"order,omitempty"`
}

// Expect names the error or warning code a step must produce.
type Expect struct {
	Error   string `yaml:"error,omitempty"`
	Warning string `yaml:"warning,omitempty"`
}

// Command converts the step to an engine command.
func (s Step) Command() (engine.Command, error) {
	kind, err := engine.ParseKind(s.Do)
	if err != nil {
		return engine.Command{}, err
	}
	return engine.Command{
		Kind:      kind,
		ProductID: model.ProductID(s.Args.Product),
		Quantity:  s.Args.Quantity,
		OrderID:   s.Args.Order,
	}, nil
}

// Assertion validates final state.
type Assertion struct {
	Type    string `yaml:"type"`
	Product string `yaml:"product,omitempty"`
	Order   int64  `yaml:"order,omitempty"`
	Count   *int   `yaml:"count,omitempty"`
	Value   string `yaml:"value,omitempty"`
	Status  string `yaml:"status,omitempty"`
	Present *bool  `yaml:"present,omitempty"`
}

// Assertion type constants.
const (
	AssertCartTotal        = "cart_total"
	AssertCartLines        = "cart_lines"
	AssertCartQuantity     = "cart_quantity"
	AssertWishlistContains = "wishlist_contains"
	AssertWishlistSize     = "wishlist_size"
	AssertOrderCount       = "order_count"
	AssertOrderStatus      = "order_status"
	AssertOrderTotal       = "order_total"
	AssertRecentFirst      = "recent_first"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file
// name. When filter is non-empty only scenarios whose name matches the glob
// pattern are returned.
func LoadDir(dir, filter string) ([]*Scenario, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	var scenarios []*Scenario
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		if filter != "" {
			matched, err := filepath.Match(filter, s.Name)
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				continue
			}
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if _, err := catalog.ConvertProducts(s.Products); err != nil {
		return fmt.Errorf("products: %w", err)
	}

	for i, step := range s.Steps {
		if step.Do == "" {
			return fmt.Errorf("steps[%d]: do is required", i)
		}
		if _, err := engine.ParseKind(step.Do); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Error != "" && step.Expect.Warning != "" {
			return fmt.Errorf("steps[%d].expect: error and warning are mutually exclusive", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	need := func(ok bool, field string) error {
		if !ok {
			return fmt.Errorf("assertions[%d]: %s is required for %s", index, field, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertCartTotal:
		return need(a.Value != "", "value")
	case AssertCartLines, AssertWishlistSize, AssertOrderCount:
		return need(a.Count != nil, "count")
	case AssertCartQuantity:
		if err := need(a.Product != "", "product"); err != nil {
			return err
		}
		return need(a.Count != nil, "count")
	case AssertWishlistContains, AssertRecentFirst:
		return need(a.Product != "", "product")
	case AssertOrderStatus:
		if err := need(a.Order > 0, "order"); err != nil {
			return err
		}
		if err := need(a.Status != "", "status"); err != nil {
			return err
		}
		if _, err := model.ParseStatus(a.Status); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		return nil
	case AssertOrderTotal:
		if err := need(a.Order > 0, "order"); err != nil {
			return err
		}
		return need(a.Value != "", "value")
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
}
