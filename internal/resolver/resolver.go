// Package resolver implements the local decision engine: given a
// snapshot and a request, it walks Domain → Group → Config → Strategy
// and returns a result with a human-readable reason.
package resolver

import (
	"fmt"

	"github.com/switcherapi/switcher-client-go/internal/snapshot"
	"github.com/switcherapi/switcher-client-go/internal/strategy"
)

// Entry is one (strategy, input) pair supplied by the caller.
type Entry struct {
	Strategy strategy.Kind
	Input    string
}

// Request is what the orchestrator asks the resolver to decide.
type Request struct {
	Key   string
	Input []Entry
}

// Result is the outcome of a resolution.
type Result struct {
	Result   bool
	Reason   string
	Metadata map[string]interface{}
}

func success() Result {
	return Result{Result: true, Reason: "Success"}
}

func disabled(reason string) Result {
	return Result{Result: false, Reason: reason}
}

// Check runs the resolution algorithm against snap. regexMatcher is
// passed through to REGEX_VALIDATION strategies; may be nil if the
// snapshot is known to contain no regex strategies.
func Check(snap *snapshot.Snapshot, req Request, regexMatcher strategy.RegexMatcher) (Result, error) {
	if snap == nil {
		return Result{}, errSnapshotNotLoaded
	}

	if !snap.Domain.Activated {
		return disabled("Domain is disabled"), nil
	}

	group, config, found := snap.Lookup(req.Key)
	if !found {
		return Result{}, errKeyNotFound(req.Key)
	}

	if !group.Activated {
		return disabled("Group disabled"), nil
	}
	if !config.Activated {
		return disabled("Config disabled"), nil
	}

	for _, sc := range config.Strategies {
		if !sc.Activated {
			continue
		}

		entry, ok := findEntry(req.Input, sc.Strategy)
		if !ok {
			return disabled(fmt.Sprintf("Strategy '%s' did not receive any input", sc.Strategy)), nil
		}

		result, evalOK := strategy.Evaluate(sc.ToStrategyInput(), entry.Input, regexMatcher)
		if !evalOK || !result {
			return disabled(fmt.Sprintf("Strategy '%s' does not agree", sc.Strategy)), nil
		}
	}

	return success(), nil
}

func findEntry(input []Entry, kind strategy.Kind) (Entry, bool) {
	for _, e := range input {
		if e.Strategy == kind {
			return e, true
		}
	}
	return Entry{}, false
}

// errSnapshotNotLoaded / keyNotFoundError are returned as plain errors
// here; the root package wraps them into the public sentinel-based
// OpError so this package stays decoupled from the facade's error model.
var errSnapshotNotLoaded = fmt.Errorf("resolver: snapshot not loaded")

type keyNotFoundError struct{ key string }

func (e *keyNotFoundError) Error() string { return fmt.Sprintf("resolver: key %q not found", e.key) }

func errKeyNotFound(key string) error {
	return &keyNotFoundError{key: key}
}

// IsSnapshotNotLoaded / IsKeyNotFound let the orchestrator distinguish
// the two resolver-specific error cases without string matching.
func IsSnapshotNotLoaded(err error) bool { return err == errSnapshotNotLoaded }

func IsKeyNotFound(err error) bool {
	_, ok := err.(*keyNotFoundError)
	return ok
}
