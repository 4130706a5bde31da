// Package snapshot models the immutable Domain → Group → Config →
// Strategy tree and loads/persists it from/to JSON, a local file, or a
// shared Redis store.
package snapshot

import "github.com/switcherapi/switcher-client-go/internal/strategy"

// Snapshot is the immutable, process-wide image of one Domain. Replaced
// wholesale by a swap; never mutated in place once built.
type Snapshot struct {
	Domain Domain `json:"domain"`

	// lookup maps a Config key to the (group index, config index) that
	// wins first-match resolution, built once at construction time so
	// the resolver does a map lookup instead of a linear tree walk on
	// every decision.
	lookup map[string]configRef
}

type configRef struct {
	groupIdx  int
	configIdx int
}

// Domain is the top-level feature-flag namespace.
type Domain struct {
	Name      string  `json:"name"`
	Version   int64   `json:"version"`
	Activated bool    `json:"activated"`
	Groups    []Group `json:"group"`
}

// Group clusters Configs and can mass-disable them.
type Group struct {
	Name      string   `json:"name"`
	Activated bool     `json:"activated"`
	Configs   []Config `json:"config"`
}

// Config is a single named feature flag.
type Config struct {
	Key        string           `json:"key"`
	Activated  bool             `json:"activated"`
	Strategies []StrategyConfig `json:"strategies"`
	Relay      *Relay           `json:"relay"`
	// Components scopes a flag to specific calling applications; parsed
	// and carried through but never consulted by the resolver (same as
	// Relay, informational only).
	Components []string `json:"components"`
}

// StrategyConfig is one predicate attached to a Config.
type StrategyConfig struct {
	Strategy  strategy.Kind      `json:"strategy"`
	Activated bool               `json:"activated"`
	Operation strategy.Operation `json:"operation"`
	Values    []string           `json:"values"`
}

// ToStrategyInput adapts a StrategyConfig to the pure-predicate Config
// shape internal/strategy.Evaluate expects.
func (s StrategyConfig) ToStrategyInput() strategy.Config {
	return strategy.Config{Kind: s.Strategy, Operation: s.Operation, Values: s.Values}
}

// Relay is informational only: the resolver never
// consults it, even though RestrictRelay is a Context option.
type Relay struct {
	Type      string `json:"type"`
	Activated bool   `json:"activated"`
}

// Build finalizes a parsed Domain into a queryable Snapshot, indexing
// every Config key. Within a Domain, Config.Key must be unique across
// all groups; the resolver assumes first match by scan order, so Build
// only ever records the first (group, config) pair seen for a given key
// and silently ignores any later duplicate, preserving "first match
// wins" even before a single decision is made.
func Build(domain Domain) *Snapshot {
	lookup := make(map[string]configRef)
	for gi, g := range domain.Groups {
		for ci, c := range g.Configs {
			if _, exists := lookup[c.Key]; exists {
				continue
			}
			lookup[c.Key] = configRef{groupIdx: gi, configIdx: ci}
		}
	}
	return &Snapshot{Domain: domain, lookup: lookup}
}

// Lookup returns the Group and Config for key, in first-match order, or
// ok=false if no Config in the snapshot carries that key.
func (s *Snapshot) Lookup(key string) (group Group, config Config, ok bool) {
	if s == nil {
		return Group{}, Config{}, false
	}
	ref, found := s.lookup[key]
	if !found {
		return Group{}, Config{}, false
	}
	return s.Domain.Groups[ref.groupIdx], s.Domain.Groups[ref.groupIdx].Configs[ref.configIdx], true
}

// Version returns the Domain's version, or 0 for a nil Snapshot.
func (s *Snapshot) Version() int64 {
	if s == nil {
		return 0
	}
	return s.Domain.Version
}
