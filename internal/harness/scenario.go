package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a multi-tab storefront script.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Tabs lists tab names. Each name is also that tab's sync origin.
	Tabs []string `yaml:"tabs"`

	// Catalog is a catalog file (.cue, .yaml, .yml). Empty selects the
	// embedded default. LoadScenario resolves it against the scenario's
	// directory.
	Catalog string `yaml:"catalog,omitempty"`

	// Channel overrides the broadcast channel name.
	Channel string `yaml:"channel,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one action in one tab, or a bus operation.
type Step struct {
	Tab      string  `yaml:"tab,omitempty"`
	Do       string  `yaml:"do"`
	Product  int64   `yaml:"product,omitempty"`
	Quantity int     `yaml:"quantity,omitempty"`
	Image    string  `yaml:"image,omitempty"`
	Expect   *Expect `yaml:"expect,omitempty"`
}

// Expect checks the outcome of a single step.
type Expect struct {
	// Error is the cart error code the step must fail with.
	Error string `yaml:"error,omitempty"`

	// Quantity is the line quantity after the step; 0 means the line is gone.
	Quantity *int `yaml:"quantity,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	Type string `yaml:"type"`
	Tab  string `yaml:"tab,omitempty"`

	// cart
	TotalItems *int          `yaml:"total_items,omitempty"`
	LineCount  *int          `yaml:"line_count,omitempty"`
	Lines      map[int64]int `yaml:"lines,omitempty"`

	// image
	Product int64  `yaml:"product,omitempty"`
	Image   string `yaml:"image,omitempty"`
	Absent  bool   `yaml:"absent,omitempty"`

	// sync_state
	State string `yaml:"state,omitempty"`

	// converged
	Tabs []string `yaml:"tabs,omitempty"`

	// trace_contains, trace_count, trace_order
	Op    string   `yaml:"op,omitempty"`
	Count int      `yaml:"count,omitempty"`
	Ops   []string `yaml:"ops,omitempty"`
}

// Step ops.
const (
	OpAdd         = "add"
	OpChange      = "change"
	OpSet         = "set"
	OpRemove      = "remove"
	OpClear       = "clear"
	OpSetImage    = "set_image"
	OpDeleteImage = "delete_image"
	OpRequestSync = "request_sync"
	OpDeliver     = "deliver"
	OpClose       = "close"
)

// Assertion type constants.
const (
	AssertCart          = "cart"
	AssertImage         = "image"
	AssertSyncState     = "sync_state"
	AssertConverged     = "converged"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

var tabOps = map[string]bool{
	OpAdd: true, OpChange: true, OpSet: true, OpRemove: true, OpClear: true,
	OpSetImage: true, OpDeleteImage: true, OpRequestSync: true, OpClose: true,
}

var productOps = map[string]bool{
	OpAdd: true, OpChange: true, OpSet: true, OpRemove: true,
	OpSetImage: true, OpDeleteImage: true,
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly. A relative catalog path is resolved
// against the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}
	if scenario.Catalog != "" {
		if _, err := os.Stat(scenario.Catalog); err != nil {
			return nil, fmt.Errorf("invalid scenario: catalog: %w", err)
		}
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
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

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Tabs) == 0 {
		return fmt.Errorf("tabs list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	tabs := make(map[string]bool, len(s.Tabs))
	for i, name := range s.Tabs {
		if name == "" {
			return fmt.Errorf("tabs[%d]: name is required", i)
		}
		if tabs[name] {
			return fmt.Errorf("tabs[%d]: duplicate tab %q", i, name)
		}
		tabs[name] = true
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step, tabs); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, tabs); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step, tabs map[string]bool) error {
	switch {
	case step.Do == "":
		return fmt.Errorf("steps[%d]: do is required", i)
	case step.Do == OpDeliver:
		if step.Tab != "" {
			return fmt.Errorf("steps[%d]: deliver takes no tab", i)
		}
	case !tabOps[step.Do]:
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Do)
	case !tabs[step.Tab]:
		return fmt.Errorf("steps[%d]: unknown tab %q", i, step.Tab)
	}
	if productOps[step.Do] && step.Product == 0 {
		return fmt.Errorf("steps[%d]: product is required for %s", i, step.Do)
	}
	if step.Do == OpSetImage && step.Image == "" {
		return fmt.Errorf("steps[%d]: image is required for set_image", i)
	}
	return nil
}

func validateAssertion(i int, a Assertion, tabs map[string]bool) error {
	needTab := func() error {
		if !tabs[a.Tab] {
			return fmt.Errorf("assertions[%d]: unknown tab %q", i, a.Tab)
		}
		return nil
	}

	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	case AssertCart:
		return needTab()
	case AssertImage:
		if a.Product == 0 {
			return fmt.Errorf("assertions[%d]: product is required for image", i)
		}
		if a.Absent == (a.Image != "") {
			return fmt.Errorf("assertions[%d]: image needs exactly one of image or absent", i)
		}
		return needTab()
	case AssertSyncState:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for sync_state", i)
		}
		return needTab()
	case AssertConverged:
		if len(a.Tabs) < 2 {
			return fmt.Errorf("assertions[%d]: converged needs at least two tabs", i)
		}
		for _, name := range a.Tabs {
			if !tabs[name] {
				return fmt.Errorf("assertions[%d]: unknown tab %q", i, name)
			}
		}
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", i)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", i)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", i)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", i)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}
