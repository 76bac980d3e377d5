package ratelimit

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultTiers are the built-in admission policies. Expensive AI-backed
// operations are throttled hard; cheap idempotent reads and inbound webhook
// callbacks get generous throughput.
var defaultTiers = []Tier{
	{Class: ClassAI, MaxOperations: 5, Window: time.Minute},
	{Class: ClassUpload, MaxOperations: 10, Window: time.Minute},
	{Class: ClassWrite, MaxOperations: 30, Window: time.Minute},
	{Class: ClassRead, MaxOperations: 60, Window: time.Minute},
	{Class: ClassAdmin, MaxOperations: 20, Window: time.Minute},
	{Class: ClassWebhook, MaxOperations: 100, Window: time.Minute},
}

// Registry is a read-only table of named tiers, fixed after construction.
type Registry struct {
	tiers map[string]Tier
}

// TierOverride adjusts one built-in tier. Zero fields keep the default.
type TierOverride struct {
	MaxOperations int           `mapstructure:"max_operations" yaml:"max_operations"`
	Window        time.Duration `mapstructure:"window" yaml:"window"`
}

// UnmarshalYAML accepts windows in time.ParseDuration form ("30s", "1m").
func (o *TierOverride) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxOperations int    `yaml:"max_operations"`
		Window        string `yaml:"window"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	o.MaxOperations = raw.MaxOperations
	if strings.TrimSpace(raw.Window) != "" {
		window, err := time.ParseDuration(raw.Window)
		if err != nil {
			return fmt.Errorf("invalid window %q: %w", raw.Window, err)
		}
		o.Window = window
	}
	return nil
}

// DefaultRegistry returns a registry populated with the built-in tiers.
func DefaultRegistry() *Registry {
	tiers := make(map[string]Tier, len(defaultTiers))
	for _, tier := range defaultTiers {
		tiers[tier.Class] = tier
	}
	return &Registry{tiers: tiers}
}

// NewRegistry builds a registry from the defaults merged with overrides.
func NewRegistry(overrides map[string]TierOverride) (*Registry, error) {
	registry := DefaultRegistry()
	if err := registry.applyOverrides(overrides); err != nil {
		return nil, err
	}
	return registry, nil
}

// Get returns the tier for a class name.
func (r *Registry) Get(class string) (Tier, bool) {
	if r == nil {
		return Tier{}, false
	}
	tier, ok := r.tiers[strings.TrimSpace(class)]
	return tier, ok
}

// Tiers returns all tiers ordered by class name.
func (r *Registry) Tiers() []Tier {
	if r == nil {
		return nil
	}
	out := make([]Tier, 0, len(r.tiers))
	for _, tier := range r.tiers {
		out = append(out, tier)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}

// applyOverrides merges per-class policy overrides onto the defaults.
// Unknown classes are rejected so a typo in config does not silently leave an
// operation class unthrottled.
func (r *Registry) applyOverrides(overrides map[string]TierOverride) error {
	for class, override := range overrides {
		class = strings.TrimSpace(class)
		tier, ok := r.tiers[class]
		if !ok {
			return fmt.Errorf("unknown tier class %q", class)
		}

		if override.MaxOperations != 0 {
			if override.MaxOperations < 0 {
				return fmt.Errorf("tier %s: max_operations must be positive", class)
			}
			tier.MaxOperations = override.MaxOperations
		}
		if override.Window != 0 {
			if override.Window < time.Second {
				return fmt.Errorf("tier %s: window must be at least one second", class)
			}
			tier.Window = override.Window
		}

		r.tiers[class] = tier
	}
	return nil
}

// MergeOverrides layers extra on top of base field-wise: a zero field in
// extra keeps base's value for that class. Neither input is mutated.
func MergeOverrides(base, extra map[string]TierOverride) map[string]TierOverride {
	merged := make(map[string]TierOverride, len(base)+len(extra))
	for class, override := range base {
		merged[class] = override
	}
	for class, override := range extra {
		combined := merged[class]
		if override.MaxOperations != 0 {
			combined.MaxOperations = override.MaxOperations
		}
		if override.Window != 0 {
			combined.Window = override.Window
		}
		merged[class] = combined
	}
	return merged
}

type policyFile struct {
	Tiers map[string]TierOverride `yaml:"tiers"`
}

// LoadPolicyFile parses per-tier overrides from a YAML policy file.
func LoadPolicyFile(path string) (map[string]TierOverride, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- policy path is operator-provided
	if err != nil {
		return nil, fmt.Errorf("read tier policy %s: %w", path, err)
	}

	var policy policyFile
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parse tier policy %s: %w", path, err)
	}

	return policy.Tiers, nil
}
