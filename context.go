package switcher

import (
	"log/slog"
	"runtime"
	"time"
)

// Options carries every tunable attached to a Context.
type Options struct {
	// Local forces every decision through the resolver against the
	// cached snapshot, skipping remote dispatch entirely.
	Local bool

	// Logger receives structured diagnostics. Nil-safe: defaults to
	// slog.Default().
	Logger *slog.Logger

	// Freeze turns off the throttle path: a throttled Switcher then
	// makes a fresh decision on every call, serving no cached value and
	// scheduling no background refresh.
	Freeze bool

	// SnapshotLocation is the directory snapshots are loaded from and
	// saved to. Empty disables file persistence (in-memory only).
	SnapshotLocation string

	// SnapshotAutoUpdateInterval is the Auto-Updater's poll period.
	// Zero disables scheduling at BuildContext time (callers may still
	// call ScheduleSnapshotAutoUpdate explicitly).
	SnapshotAutoUpdateInterval time.Duration

	// SilentMode is a duration string ("5s", "1m", "2h"); empty
	// disables silent-mode fallback entirely.
	SilentMode string

	// ThrottleMaxWorkers bounds the throttle background-refresh pool.
	// Zero defaults to runtime.NumCPU().
	ThrottleMaxWorkers int

	// RestrictRelay is parsed
	// and stored, never consulted by the resolver.
	RestrictRelay bool

	// RegexMaxBlackList bounds the Timed Regex Matcher's FIFO
	// blacklist. Zero defaults to 50.
	RegexMaxBlackList int

	// RegexMaxTimeLimit bounds a single regex match attempt. Zero
	// defaults to 3s.
	RegexMaxTimeLimit time.Duration
}

func (o Options) withDefaults() Options {
	if o.ThrottleMaxWorkers <= 0 {
		o.ThrottleMaxWorkers = runtime.NumCPU()
	}
	if o.RegexMaxBlackList <= 0 {
		o.RegexMaxBlackList = 50
	}
	if o.RegexMaxTimeLimit <= 0 {
		o.RegexMaxTimeLimit = 3 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// ContextOpts is the input to BuildContext.
type ContextOpts struct {
	Domain      string
	URL         string
	APIKey      string
	Component   string
	Environment string
	Options     Options
}

// Context is the process-wide configuration cell. Immutable once
// built; BuildContext replaces it wholesale.
type Context struct {
	Domain      string
	URL         string
	APIKey      string
	Component   string
	Environment string
	Options     Options
}

func newContext(opts ContextOpts) (*Context, error) {
	if opts.Domain == "" {
		return nil, newOpError("buildContext", ErrContextInvalid, 0, nil)
	}

	if opts.Options.SilentMode != "" {
		if _, err := parseDurationString(opts.Options.SilentMode); err != nil {
			return nil, err
		}
	}

	return &Context{
		Domain:      opts.Domain,
		URL:         opts.URL,
		APIKey:      opts.APIKey,
		Component:   opts.Component,
		Environment: opts.Environment,
		Options:     opts.Options.withDefaults(),
	}, nil
}

// silentModeDuration parses Options.SilentMode, returning 0 when unset.
func (c *Context) silentModeDuration() time.Duration {
	if c.Options.SilentMode == "" {
		return 0
	}
	d, err := parseDurationString(c.Options.SilentMode)
	if err != nil {
		return 0
	}
	return d
}
