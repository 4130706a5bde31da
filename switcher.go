// Package switcher is the facade: BuildContext configures a process-wide
// Client, GetSwitcher hands out per-call decision builders, and isOn/
// isOnWithDetails dispatch local or remote evaluation.
package switcher

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/switcherapi/switcher-client-go/internal/execlog"
	"github.com/switcherapi/switcher-client-go/internal/remote"
	"github.com/switcherapi/switcher-client-go/internal/resolver"
	"github.com/switcherapi/switcher-client-go/internal/strategy"
)

// Switcher is the caller-facing, chainable decision builder returned by
// GetSwitcher. Safe for concurrent use: a throttled Switcher is
// typically held across many calls, so its mutable state (accumulated
// input, throttle bookkeeping, default/restrictRelay flags) is
// mutex-protected.
type Switcher struct {
	client *Client
	key    string

	mu            sync.Mutex
	input         []resolver.Entry
	throttle      time.Duration
	nextRefresh   time.Time
	hasDefault    bool
	defaultResult bool
	restrictRelay bool
}

// GetSwitcher returns a new decision builder for key. A decision made
// with an empty key fails with ErrValidationInput; successful decisions
// are recorded in the Execution Logger.
func (c *Client) GetSwitcher(key string) *Switcher {
	return &Switcher{client: c, key: key}
}

func (s *Switcher) setEntry(kind strategy.Kind, input string) *Switcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.input {
		if e.Strategy == kind {
			s.input[i].Input = input
			return s
		}
	}
	s.input = append(s.input, resolver.Entry{Strategy: kind, Input: input})
	return s
}

// Check attaches an arbitrary strategy/input pair, replacing any prior
// entry for the same strategy. The named Check* wrappers below cover
// the strategies the programmatic surface names explicitly.
func (s *Switcher) Check(kind strategy.Kind, input string) *Switcher {
	return s.setEntry(kind, input)
}

// CheckValue attaches a VALUE_VALIDATION input.
func (s *Switcher) CheckValue(input string) *Switcher { return s.setEntry(strategy.Value, input) }

// CheckNetwork attaches a NETWORK_VALIDATION input.
func (s *Switcher) CheckNetwork(input string) *Switcher { return s.setEntry(strategy.Network, input) }

// CheckRegex attaches a REGEX_VALIDATION input.
func (s *Switcher) CheckRegex(input string) *Switcher { return s.setEntry(strategy.Regex, input) }

// CheckPayload attaches a PAYLOAD_VALIDATION input. Accepts either a
// pre-encoded JSON string or an arbitrary Go value to be marshaled.
func (s *Switcher) CheckPayload(payload interface{}) *Switcher {
	if str, ok := payload.(string); ok {
		return s.setEntry(strategy.Payload, str)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return s.setEntry(strategy.Payload, "")
	}
	return s.setEntry(strategy.Payload, string(raw))
}

// Throttle enables the decision cache-and-refresh path: within
// one period, at most one remote/local decision is made; other callers
// observe the cached value with metadata {"cached": true}.
func (s *Switcher) Throttle(periodMs int) *Switcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttle = time.Duration(periodMs) * time.Millisecond
	return s
}

// DefaultResult sets the fallback boolean returned when a decision
// cannot be made and no silent-mode recovery applies.
func (s *Switcher) DefaultResult(v bool) *Switcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasDefault = true
	s.defaultResult = v
	return s
}

// RestrictRelay is stored for forward compatibility; never
// consulted by the resolver.
func (s *Switcher) RestrictRelay(v bool) *Switcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restrictRelay = v
	return s
}

// Prepare returns the key and accumulated input this Switcher would
// evaluate, without performing a decision. Useful for introspection and
// tests.
func (s *Switcher) Prepare() (string, []resolver.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key, append([]resolver.Entry(nil), s.input...)
}

// IsOn runs the decision path and returns only the boolean result.
func (s *Switcher) IsOn(ctx context.Context) (bool, error) {
	result, err := s.IsOnWithDetails(ctx)
	return result.Result, err
}

// IsOnWithDetails runs the full decision path.
func (s *Switcher) IsOnWithDetails(ctx context.Context) (resolver.Result, error) {
	s.mu.Lock()
	input := append([]resolver.Entry(nil), s.input...)
	throttlePeriod := s.throttle
	s.mu.Unlock()

	if s.key == "" {
		return resolver.Result{}, newOpError("isOn", ErrValidationInput, 0, nil)
	}

	if throttlePeriod > 0 && !s.client.ctx.Options.Freeze {
		return s.decideThrottled(ctx, input, throttlePeriod)
	}

	result, err := s.decide(ctx, input)
	if s.key != "" && err == nil {
		s.logResult(input, result)
	}
	return result, err
}

func (s *Switcher) decideThrottled(ctx context.Context, input []resolver.Entry, period time.Duration) (resolver.Result, error) {
	if exec, ok := s.client.execLogger.GetExecution(s.key, toLogEntries(input)); ok {
		s.mu.Lock()
		due := time.Now().After(s.nextRefresh)
		if due {
			s.nextRefresh = time.Now().Add(period)
		}
		s.mu.Unlock()

		if due {
			s.client.throttlePool.submit(func() {
				result, err := s.decide(context.Background(), input)
				if err != nil {
					s.client.notifyError(err)
					return
				}
				s.logResult(input, result)
			})
		}

		meta := cloneMeta(exec.Metadata)
		meta["cached"] = true
		return resolver.Result{Result: exec.Result, Reason: exec.Reason, Metadata: meta}, nil
	}

	s.mu.Lock()
	s.nextRefresh = time.Now().Add(period)
	s.mu.Unlock()

	result, err := s.decide(ctx, input)
	if err == nil {
		if result.Metadata == nil {
			result.Metadata = map[string]interface{}{}
		}
		s.logResult(input, result)
	}
	return result, err
}

func (s *Switcher) logResult(input []resolver.Entry, result resolver.Result) {
	if s.key == "" {
		return
	}
	s.client.execLogger.Add(s.key, toLogEntries(input), result.Result, result.Reason, result.Metadata)
}

// decide runs the local path, or the remote path with
// token validation/renewal and silent-mode/default fallback on failure.
func (s *Switcher) decide(ctx context.Context, input []resolver.Entry) (resolver.Result, error) {
	c := s.client

	if c.ctx.Options.Local {
		return c.localCheck(input, s.key)
	}

	token, err := c.ensureToken(ctx)
	if err != nil {
		return s.handleFailure(input, err)
	}
	if token == auth_SILENT {
		return c.localCheck(input, s.key)
	}

	res, err := c.remoteClient.CheckCriteria(ctx, token, s.key, toCriteriaEntries(input), true)
	if err != nil {
		return s.handleFailure(input, newOpError("checkCriteria", ErrCriteriaRemoteFailed, 0, err))
	}

	metadata := res.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return resolver.Result{Result: res.Result, Reason: res.Reason, Metadata: metadata}, nil
}

// handleFailure implements the failure-propagation rules:
// notify the error subscriber, then either fall back to silent-mode
// local evaluation, return the configured default, or re-raise.
func (s *Switcher) handleFailure(input []resolver.Entry, err error) (resolver.Result, error) {
	c := s.client
	c.notifyError(err)

	if d := c.ctx.silentModeDuration(); d > 0 {
		c.authState.SetSilent(time.Now().Add(d))
		return c.localCheck(input, s.key)
	}

	s.mu.Lock()
	hasDefault, defaultResult := s.hasDefault, s.defaultResult
	s.mu.Unlock()
	if hasDefault {
		return resolver.Result{Result: defaultResult, Reason: "Default result"}, nil
	}
	return resolver.Result{}, err
}

// auth_SILENT mirrors the sentinel auth.Status.Token() returns while in
// silent mode, without importing internal/auth's Status type here.
const auth_SILENT = "SILENT"

func cloneMeta(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toCriteriaEntries(input []resolver.Entry) []remote.CriteriaEntry {
	out := make([]remote.CriteriaEntry, len(input))
	for i, e := range input {
		out[i] = remote.CriteriaEntry{Strategy: string(e.Strategy), Input: e.Input}
	}
	return out
}

func (c *Client) localCheck(input []resolver.Entry, key string) (resolver.Result, error) {
	snap := c.current.Load()
	result, err := resolver.Check(snap, resolver.Request{Key: key, Input: input}, c.regexMatcher)
	if err == nil {
		return result, nil
	}
	switch {
	case resolver.IsSnapshotNotLoaded(err):
		return resolver.Result{}, newOpError("check", ErrSnapshotNotLoaded, 0, nil)
	case resolver.IsKeyNotFound(err):
		return resolver.Result{}, newOpError("check", ErrKeyNotFound, 0, err)
	default:
		return resolver.Result{}, newOpError("check", ErrValidationInput, 0, err)
	}
}

// --- Module-level facade: delegates to a process-wide default Client,
// ---

var defaultClient atomic.Pointer[Client]

// BuildContext constructs the process-wide Client, replacing any prior
// one: the Context is created once per process by BuildContext,
// replacing any prior").
func BuildContext(opts ContextOpts) error {
	c, err := newClient(opts)
	if err != nil {
		return err
	}
	defaultClient.Store(c)
	return nil
}

func currentClient() *Client {
	c := defaultClient.Load()
	if c == nil {
		panic("switcher: BuildContext must be called before using the module-level facade")
	}
	return c
}

// GetSwitcher returns a decision builder against the default Client.
func GetSwitcher(key string) *Switcher { return currentClient().GetSwitcher(key) }

// LoadSnapshot loads the current snapshot for the default Client.
func LoadSnapshot() error { return currentClient().LoadSnapshot() }

// CheckSnapshot runs validateSnapshot against the default Client.
func CheckSnapshot(ctx context.Context) (bool, error) { return currentClient().CheckSnapshot(ctx) }

// ScheduleSnapshotAutoUpdate starts the Auto-Updater on the default Client.
func ScheduleSnapshotAutoUpdate(interval time.Duration) {
	currentClient().ScheduleSnapshotAutoUpdate(interval)
}

// TerminateSnapshotAutoUpdate stops the Auto-Updater on the default Client.
func TerminateSnapshotAutoUpdate(timeout time.Duration) error {
	return currentClient().TerminateSnapshotAutoUpdate(timeout)
}

// SnapshotVersion returns the default Client's current snapshot version.
func SnapshotVersion() int64 { return currentClient().SnapshotVersion() }

// GetExecution looks up a cached decision on the default Client.
func GetExecution(key string, input []resolver.Entry) (*execlog.Execution, bool) {
	return currentClient().GetExecution(key, input)
}

// ClearLogger empties the default Client's Execution Logger.
func ClearLogger() { currentClient().ClearLogger() }

// ClearResources tears down every background worker/cache on the
// default Client.
func ClearResources() error { return currentClient().ClearResources() }

// SubscribeNotifyError registers the default Client's error subscriber.
func SubscribeNotifyError(cb func(error)) { currentClient().SubscribeNotifyError(cb) }
