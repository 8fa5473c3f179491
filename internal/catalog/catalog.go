// Package catalog holds the static registries of projects, financing options
// and market events. The registries are read-only once loaded.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/user/cfo-challenge/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is an immutable set of game data
type Catalog struct {
	projects  []types.Project
	financing []types.FinancingOption
	events    []types.MarketEvent
}

type catalogFile struct {
	Projects         []types.Project         `yaml:"projects"`
	FinancingOptions []types.FinancingOption `yaml:"financing_options"`
	MarketEvents     []types.MarketEvent     `yaml:"market_events"`
}

var decisionOptions = []types.DecisionChoice{
	{Label: "Invest (Continue)", Decision: types.DecisionContinue},
	{Label: "Delay", Decision: types.DecisionDelay},
	{Label: "Abandon", Decision: types.DecisionAbandon},
}

// Default returns the built-in catalog
func Default() *Catalog {
	c, err := Load(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded data is invalid: %v", err))
	}
	return c
}

// LoadFile reads a catalog from a YAML file
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Load(data)
}

// Load parses and validates YAML catalog data
func Load(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		projects:  file.Projects,
		financing: file.FinancingOptions,
		events:    file.MarketEvents,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if len(c.projects) == 0 {
		return errors.New("catalog has no projects")
	}
	if len(c.financing) == 0 {
		return errors.New("catalog has no financing options")
	}
	if len(c.events) == 0 {
		return errors.New("catalog has no market events")
	}

	seen := make(map[string]bool)
	for _, p := range c.projects {
		if strings.TrimSpace(p.Name) == "" {
			return errors.New("project with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate project: %s", p.Name)
		}
		seen[p.Name] = true

		if p.Cost <= 0 {
			return fmt.Errorf("project %s: cost must be positive", p.Name)
		}
		if p.Life <= 0 || len(p.CashInflows) != p.Life {
			return fmt.Errorf("project %s: %d cash inflows for a life of %d", p.Name, len(p.CashInflows), p.Life)
		}
		for _, cf := range p.CashInflows {
			if cf < 0 {
				return fmt.Errorf("project %s: negative cash inflow", p.Name)
			}
		}
	}

	seen = make(map[string]bool)
	for _, f := range c.financing {
		if seen[f.Name] {
			return fmt.Errorf("duplicate financing option: %s", f.Name)
		}
		seen[f.Name] = true
	}

	seen = make(map[string]bool)
	for _, e := range c.events {
		if seen[e.Name] {
			return fmt.Errorf("duplicate market event: %s", e.Name)
		}
		seen[e.Name] = true
		if !KnownKind(e.Kind) {
			return fmt.Errorf("market event %s: unknown kind %q", e.Name, e.Kind)
		}
	}
	return nil
}

// Projects returns a copy of every project
func (c *Catalog) Projects() []types.Project {
	out := make([]types.Project, len(c.projects))
	for i, p := range c.projects {
		out[i] = cloneProject(p)
	}
	return out
}

// Project looks up a project by name
func (c *Catalog) Project(name string) (types.Project, bool) {
	for _, p := range c.projects {
		if p.Name == name {
			return cloneProject(p), true
		}
	}
	return types.Project{}, false
}

// FinancingOptions returns a copy of every financing option
func (c *Catalog) FinancingOptions() []types.FinancingOption {
	return append([]types.FinancingOption(nil), c.financing...)
}

// Financing looks up a financing option by name
func (c *Catalog) Financing(name string) (types.FinancingOption, bool) {
	for _, f := range c.financing {
		if f.Name == name {
			return f, true
		}
	}
	return types.FinancingOption{}, false
}

// MarketEvents returns a copy of every market event
func (c *Catalog) MarketEvents() []types.MarketEvent {
	return append([]types.MarketEvent(nil), c.events...)
}

// DecisionOptions returns the decision menu
func (c *Catalog) DecisionOptions() []types.DecisionChoice {
	return append([]types.DecisionChoice(nil), decisionOptions...)
}

func cloneProject(p types.Project) types.Project {
	p.CashInflows = append([]float64(nil), p.CashInflows...)
	return p
}
