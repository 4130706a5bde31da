package switcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/switcherapi/switcher-client-go/internal/auth"
	"github.com/switcherapi/switcher-client-go/internal/autoupdate"
	"github.com/switcherapi/switcher-client-go/internal/execlog"
	"github.com/switcherapi/switcher-client-go/internal/regexmatch"
	"github.com/switcherapi/switcher-client-go/internal/remote"
	"github.com/switcherapi/switcher-client-go/internal/resolver"
	"github.com/switcherapi/switcher-client-go/internal/snapshot"
)

// Client is the process-wide orchestrator owning every shared
// cell: the Context, the Snapshot store, AuthState, the
// Execution Logger, the regex Blacklist (inside regexMatcher) and the
// Auto-Updater/throttle background workers. Package-level facade
// functions (BuildContext, GetSwitcher, ...) delegate to a process-wide
// default *Client.
type Client struct {
	ctx *Context

	store        snapshot.Store
	current      atomic.Pointer[snapshot.Snapshot]
	remoteClient *remote.Client
	authState    *auth.State
	regexMatcher *regexmatch.Matcher
	execLogger   *execlog.Logger
	updater      *autoupdate.Updater
	throttlePool *throttlePool

	errSubMu sync.RWMutex
	errSub   func(error)
}

// newClient builds a fully-wired Client from opts. It does not load a
// snapshot; callers do that explicitly via LoadSnapshot, matching
// "Snapshot is created lazily on first LoadSnapshot call". It schedules
// the auto-updater only when Options.SnapshotAutoUpdateInterval is
// positive; otherwise callers use ScheduleSnapshotAutoUpdate.
func newClient(opts ContextOpts) (*Client, error) {
	ctx, err := newContext(opts)
	if err != nil {
		return nil, err
	}

	var store snapshot.Store
	if ctx.Options.SnapshotLocation != "" {
		store = snapshot.NewFileStore(ctx.Options.SnapshotLocation)
	}

	c := &Client{
		ctx:          ctx,
		store:        store,
		remoteClient: remote.New(ctx.URL, ctx.APIKey, 10*time.Second, ctx.Options.Logger),
		authState:    auth.NewState(),
		regexMatcher: regexmatch.New(ctx.Options.RegexMaxTimeLimit, ctx.Options.RegexMaxBlackList, ctx.Options.Logger),
		execLogger:   execlog.New(500, ctx.Options.Logger),
		updater:      autoupdate.New(ctx.Options.Logger),
		throttlePool: newThrottlePool(ctx.Options.ThrottleMaxWorkers),
	}
	c.execLogger.OnError(c.notifyError)

	if ctx.Options.SnapshotAutoUpdateInterval > 0 {
		c.ScheduleSnapshotAutoUpdate(ctx.Options.SnapshotAutoUpdateInterval)
	}
	return c, nil
}

// LoadSnapshot loads the current snapshot from the configured Store
// (file-backed, or Redis if UseRedisStore was used), parsing it into
// the in-memory cell via an atomic swap. With no Store configured it
// installs an empty, deactivated snapshot.
func (c *Client) LoadSnapshot() error {
	if c.store == nil {
		c.current.Store(snapshot.Build(snapshot.Domain{}))
		return nil
	}
	snap, err := c.store.Load(c.ctx.Environment)
	if err != nil {
		return fmt.Errorf("switcher: loading snapshot: %w", err)
	}
	c.current.Store(snap)
	return nil
}

// UseRedisStore swaps the snapshot persistence backend to a shared
// Redis store, for multi-process deployments.
func (c *Client) UseRedisStore(store *snapshot.RedisStore) {
	c.store = store
}

// CheckSnapshot asks the remote service whether the current version is
// stale and, if so, resolves and swaps in a fresh snapshot. Returns
// whether a new snapshot was applied.
func (c *Client) CheckSnapshot(ctx context.Context) (bool, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return false, err
	}

	upToDate, err := c.remoteClient.CheckSnapshotVersion(ctx, token, c.SnapshotVersion())
	if err != nil {
		return false, newOpError("checkSnapshot", ErrRemoteFailed, 0, err)
	}
	if upToDate {
		return false, nil
	}

	raw, err := c.remoteClient.ResolveSnapshot(ctx, token, c.ctx.Domain, c.ctx.Environment, c.ctx.Component)
	if err != nil {
		return false, newOpError("resolveSnapshot", ErrRemoteFailed, 0, err)
	}

	snap, err := snapshot.Parse(raw)
	if err != nil {
		return false, newOpError("resolveSnapshot", ErrValidationInput, 0, err)
	}

	c.current.Store(snap)
	if c.store != nil {
		_ = c.store.Save(snap, c.ctx.Environment)
	}
	return true, nil
}

// SnapshotVersion returns the version of the currently loaded snapshot,
// or 0 if none has been loaded.
func (c *Client) SnapshotVersion() int64 {
	return c.current.Load().Version()
}

// ScheduleSnapshotAutoUpdate starts the Auto-Updater on the
// given interval. Idempotent while already scheduled.
func (c *Client) ScheduleSnapshotAutoUpdate(interval time.Duration) {
	c.updater.Schedule(interval, func(ctx context.Context) (bool, error) {
		return c.CheckSnapshot(ctx)
	}, func(success bool, err error) {
		if !success {
			c.notifyError(err)
		}
	})
}

// TerminateSnapshotAutoUpdate stops the Auto-Updater, joining with a
// bounded timeout.
func (c *Client) TerminateSnapshotAutoUpdate(timeout time.Duration) error {
	return c.updater.Terminate(timeout)
}

// GetExecution exposes the Execution Logger's cache lookup.
func (c *Client) GetExecution(key string, input []resolver.Entry) (*execlog.Execution, bool) {
	return c.execLogger.GetExecution(key, toLogEntries(input))
}

// ClearLogger empties the Execution Logger.
func (c *Client) ClearLogger() {
	c.execLogger.Clear()
}

// ClearResources tears down every background worker and cache:
// terminates the auto-updater, clears the execution log, drops the
// snapshot, and stops the regex matcher's worker.
func (c *Client) ClearResources() error {
	err := c.updater.Terminate(5 * time.Second)
	c.execLogger.Clear()
	c.current.Store(nil)
	c.regexMatcher.Close(5 * time.Second)
	c.throttlePool.stop()
	return err
}

// SubscribeNotifyError registers the single onError subscriber.
func (c *Client) SubscribeNotifyError(cb func(error)) {
	c.errSubMu.Lock()
	defer c.errSubMu.Unlock()
	c.errSub = cb
}

func (c *Client) notifyError(err error) {
	if err == nil {
		return
	}
	c.errSubMu.RLock()
	cb := c.errSub
	c.errSubMu.RUnlock()
	if cb != nil {
		cb(err)
	}
}

// ensureToken returns a valid bearer token, renewing it via auth() if
// expired, per the token lifecycle state machine.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	if err := auth.ValidateCredentials(c.ctx.URL, c.ctx.Component, c.ctx.APIKey); err != nil {
		return "", newOpError("ensureToken", ErrContextInvalid, 0, err)
	}

	if !c.authState.IsTokenExpired() {
		return c.authState.Get().Token(), nil
	}

	// A silent-mode window just elapsed: probe /check before spending a
	// real auth() attempt. An unhealthy remote re-enters silent mode for
	// another window instead of failing the caller outright.
	if c.authState.Get().IsSilent() {
		if err := c.remoteClient.CheckHealth(ctx); err != nil {
			if d := c.ctx.silentModeDuration(); d > 0 {
				c.authState.SetSilent(time.Now().Add(d))
				return c.authState.Get().Token(), nil
			}
			return "", newOpError("checkHealth", ErrRemoteFailed, 0, err)
		}
	}

	result, err := c.remoteClient.Auth(ctx, c.ctx.Domain, c.ctx.Component, c.ctx.Environment)
	if err != nil {
		c.authState.Reset()
		return "", newOpError("auth", ErrAuthFailed, 0, err)
	}

	c.authState.SetValid(result.Token, time.Unix(result.Exp, 0))
	return result.Token, nil
}

func toLogEntries(input []resolver.Entry) []execlog.Entry {
	out := make([]execlog.Entry, len(input))
	for i, e := range input {
		out[i] = execlog.Entry{Strategy: string(e.Strategy), Input: e.Input}
	}
	return out
}
