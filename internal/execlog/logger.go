// Package execlog is the Execution Logger: an in-memory record
// of recent decisions, keyed by (key, input), plus a single-subscriber
// async error notification point modeled on the event-bus
// broadcast-worker pattern in internal/realtime/bus.go, trimmed from
// many subscribers to the one onError callback the facade exposes.
package execlog

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry is one (strategy, input) pair, mirroring resolver.Entry without
// importing it (execlog stays a leaf package).
type Entry struct {
	Strategy string
	Input    string
}

// Execution is a cached decision outcome.
type Execution struct {
	Key      string
	Input    []Entry
	Result   bool
	Reason   string
	Metadata map[string]interface{}
}

// canonicalKey builds the LRU cache key from (key, sorted input pairs),
// so insertion order of the input slice does not affect lookups.
func canonicalKey(key string, input []Entry) string {
	pairs := make([]string, len(input))
	for i, e := range input {
		pairs[i] = e.Strategy + "=" + e.Input
	}
	sort.Strings(pairs)
	return key + "|" + strings.Join(pairs, "&")
}

// subsetMatch reports whether every entry in logged is present in
// query, the "subset" input-equality rule: a cached entry logged
// against a narrower input set may still satisfy a broader query.
func subsetMatch(logged, query []Entry) bool {
	querySet := make(map[Entry]bool, len(query))
	for _, e := range query {
		querySet[e] = true
	}
	for _, e := range logged {
		if !querySet[e] {
			return false
		}
	}
	return true
}

// Logger is the bounded execution cache plus the onError notification
// point.
type Logger struct {
	cache *lru.Cache[string, *Execution]
	mu    sync.RWMutex

	logger     *slog.Logger
	subscriber func(error)
	errCh      chan error
	stopOnce   sync.Once
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// New builds a Logger with an LRU cache of the given capacity. Each
// cache slot holds the most recent Execution for one canonical key;
// subset lookups scan every slot for a narrower logged input set.
func New(capacity int, logger *slog.Logger) *Logger {
	if capacity <= 0 {
		capacity = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, _ := lru.New[string, *Execution](capacity)

	l := &Logger{
		cache:  cache,
		logger: logger.With("component", "execlog"),
		errCh:  make(chan error, 64),
		stopCh: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.dispatchLoop()
	return l
}

// Add records an execution outcome, replacing any prior entry for the
// same (key, input) rather than accumulating one: canonicalKey is
// deterministic for a given (key, input), so a later Add for the same
// pair always overwrites instead of growing the cache slot.
func (l *Logger) Add(key string, input []Entry, result bool, reason string, metadata map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ck := canonicalKey(key, input)
	l.cache.Add(ck, &Execution{Key: key, Input: input, Result: result, Reason: reason, Metadata: metadata})
}

// GetExecution looks up the cached execution for (key, input). Falls
// back to a subset match: a cached entry logged against an input set
// narrower than the query still satisfies it.
func (l *Logger) GetExecution(key string, input []Entry) (*Execution, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ck := canonicalKey(key, input)
	if exec, ok := l.cache.Get(ck); ok {
		return exec, true
	}

	// Fall back to scanning for a subset match when the canonical key
	// (built from this exact input set) misses, but an execution logged
	// against a narrower input set exists for the same key.
	for _, ck := range l.cache.Keys() {
		exec, ok := l.cache.Peek(ck)
		if ok && exec.Key == key && subsetMatch(exec.Input, input) {
			return exec, true
		}
	}
	return nil, false
}

// GetByKey returns every cached execution recorded for key.
func (l *Logger) GetByKey(key string) []*Execution {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*Execution
	for _, ck := range l.cache.Keys() {
		if exec, ok := l.cache.Peek(ck); ok && exec.Key == key {
			out = append(out, exec)
		}
	}
	return out
}

// Clear empties the cache (clearLogger facade operation).
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Purge()
}

// NotifyError enqueues err for async delivery to the subscribed onError
// callback. Non-blocking: a full queue drops the error, matching the
// bus.go's "channel full, drop event" behavior rather than
// blocking the decision path on a slow subscriber.
func (l *Logger) NotifyError(err error) {
	select {
	case l.errCh <- err:
	default:
		l.logger.Warn("error notification queue full, dropping", "error", err)
	}
}

// OnError registers the single subscriber for NotifyError events. Only
// one subscriber is supported, mirroring subscribeNotifyError's
// single-callback contract; a later call replaces the earlier one.
func (l *Logger) OnError(cb func(error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscriber = cb
}

func (l *Logger) dispatchLoop() {
	defer l.wg.Done()
	for {
		select {
		case err := <-l.errCh:
			l.mu.RLock()
			cb := l.subscriber
			l.mu.RUnlock()
			if cb != nil {
				cb(err)
			}
		case <-l.stopCh:
			return
		}
	}
}

// Close stops the dispatch worker. Safe to call multiple times.
func (l *Logger) Close() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
	l.wg.Wait()
}
