// Package achievement evaluates a catalog of unlock rules against derived
// activity state. Unlocks are monotonic: once recorded they are never
// revoked, even if the underlying ledger later changes.
package achievement

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule kinds understood by the evaluator.
const (
	RuleStreakThreshold        = "streak_threshold"
	RuleTotalCountThreshold    = "total_count_threshold"
	RuleChallengeQualification = "challenge_qualification"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// Rule is a single tagged predicate over derived activity state.
type Rule struct {
	// Kind selects the predicate: streak_threshold, total_count_threshold
	// or challenge_qualification.
	Kind string `yaml:"kind" json:"kind"`
	// Threshold is the bar the derived value must reach. For
	// challenge_qualification it is the number of qualifying challenges
	// and defaults to 1 when omitted.
	Threshold int `yaml:"threshold" json:"threshold"`
}

// Achievement is one catalog entry.
type Achievement struct {
	Key         string `yaml:"key" json:"key"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Icon        string `yaml:"icon" json:"icon,omitempty"`
	Rule        Rule   `yaml:"rule" json:"rule"`
}

// Catalog is the ordered list of achievements. Evaluation order follows
// catalog order, so results are deterministic for a given catalog.
type Catalog struct {
	Achievements []Achievement `yaml:"achievements"`
}

// LoadCatalog reads the achievement catalog from a YAML file. An empty path
// loads the embedded default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	raw := defaultCatalogYAML
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
		raw = data
	}

	var catalog Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := catalog.validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool, len(c.Achievements))
	for i := range c.Achievements {
		a := &c.Achievements[i]
		if a.Key == "" {
			return fmt.Errorf("catalog entry %d has no key", i)
		}
		if seen[a.Key] {
			return fmt.Errorf("duplicate achievement key %q", a.Key)
		}
		seen[a.Key] = true

		switch a.Rule.Kind {
		case RuleStreakThreshold, RuleTotalCountThreshold:
			if a.Rule.Threshold <= 0 {
				return fmt.Errorf("achievement %q: threshold must be positive", a.Key)
			}
		case RuleChallengeQualification:
			// Threshold defaults to 1 at evaluation time.
		default:
			return fmt.Errorf("achievement %q: unsupported rule kind %q", a.Key, a.Rule.Kind)
		}
	}
	return nil
}

// Get returns the catalog entry for a key, or nil when absent.
func (c *Catalog) Get(key string) *Achievement {
	for i := range c.Achievements {
		if c.Achievements[i].Key == key {
			return &c.Achievements[i]
		}
	}
	return nil
}
