// Package regexmatch executes regex matches under a hard wall-clock
// time limit, so a catastrophically-backtracking pattern/input pair can
// never block the calling decision beyond that limit, and remembers
// pairs that have already timed out.
package regexmatch

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
)

// job is one unit of work submitted to the isolated worker goroutine.
type job struct {
	patterns  []string
	input     string
	fullMatch bool
	reply     chan bool
}

// blacklistEntry is a (patterns, input) pair known to time out.
type blacklistEntry struct {
	patterns []string
	input    string
}

// Matcher runs regex matches on a single long-lived worker goroutine,
// enforcing a time limit per job and remembering pathological pairs in a
// bounded FIFO blacklist. It is the Go equivalent of the original's
// child-process isolation: since a goroutine cannot be forcibly killed,
// a timed-out job's worker is simply abandoned (its result is never
// read) and a fresh worker is dispatched immediately ("replacement is
// eager" per the design notes.
type Matcher struct {
	timeLimit     time.Duration
	maxBlacklist  int
	logger        *slog.Logger

	mu        sync.Mutex
	blacklist []blacklistEntry

	jobsMu  sync.Mutex
	jobs    chan job
	stopped chan struct{}
	wg      sync.WaitGroup
}

// New creates a Matcher with the given per-match time limit and
// blacklist capacity. A nil logger defaults to slog.Default().
func New(timeLimit time.Duration, maxBlacklist int, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBlacklist <= 0 {
		maxBlacklist = 50
	}

	m := &Matcher{
		timeLimit:    timeLimit,
		maxBlacklist: maxBlacklist,
		logger:       logger.With("component", "regexmatch"),
	}
	m.spawnWorker()
	return m
}

// spawnWorker starts a fresh worker goroutine and points m.jobs at its
// input channel. Must be called with jobsMu held, or during New (no
// concurrent access yet).
func (m *Matcher) spawnWorker() {
	jobs := make(chan job, 1)
	stopped := make(chan struct{})
	m.jobs = jobs
	m.stopped = stopped

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(stopped)
		for j := range jobs {
			j.reply <- runMatch(j.patterns, j.input, j.fullMatch)
		}
	}()
}

// runMatch is the actual regex evaluation. A pattern that fails to
// compile, or a panic caught by recover(), reports no match; the worker
// keeps serving later jobs.
func runMatch(patterns []string, input string, fullMatch bool) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			result = false
		}
	}()

	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		if fullMatch {
			loc := re.FindStringIndex(input)
			if loc != nil && loc[0] == 0 && loc[1] == len(input) {
				return true
			}
			continue
		}
		if re.MatchString(input) {
			return true
		}
	}
	return false
}

// TryMatch matches patterns against input, honoring fullMatch (EQUAL /
// NOT_EQUAL semantics use full-string match; EXIST / NOT_EXIST use
// substring search; the caller in internal/strategy already folds the
// NOT_* negation in, so TryMatch only ever reports the positive match).
//
// The call never blocks the caller longer than the configured time
// limit: on timeout the in-flight worker is abandoned, the pair is
// blacklisted, and false is returned immediately. A pattern that does
// not compile is blacklisted the same way and reports false.
func (m *Matcher) TryMatch(patterns []string, input string, fullMatch bool) bool {
	if m.isBlacklisted(patterns, input) {
		return false
	}
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			m.addBlacklist(patterns, input)
			return false
		}
	}

	reply := make(chan bool, 1)
	j := job{patterns: patterns, input: input, fullMatch: fullMatch, reply: reply}

	m.jobsMu.Lock()
	jobsChan := m.jobs
	m.jobsMu.Unlock()

	select {
	case jobsChan <- j:
	default:
		// Worker is busy with a prior stuck job; treat as a timeout for
		// this call rather than queueing behind an unbounded wait.
		m.onTimeout(patterns, input)
		return false
	}

	select {
	case result := <-reply:
		return result
	case <-time.After(m.timeLimit):
		m.onTimeout(patterns, input)
		return false
	}
}

// onTimeout blacklists the pair and replaces the worker so future calls
// are not blocked by the abandoned goroutine's channel send.
func (m *Matcher) onTimeout(patterns []string, input string) {
	m.logger.Warn("regex match timed out, blacklisting", "patterns", patterns, "input_len", len(input))
	m.addBlacklist(patterns, input)

	m.jobsMu.Lock()
	abandoned := m.jobs
	m.spawnWorker()
	m.jobsMu.Unlock()

	// The abandoned worker may still be stuck inside a pathological
	// match; closing its (now unreferenced) job channel lets it exit
	// the moment that match finally returns, instead of blocking
	// forever on a channel nobody will send to again.
	close(abandoned)
}

func (m *Matcher) addBlacklist(patterns []string, input string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blacklist = append(m.blacklist, blacklistEntry{patterns: append([]string(nil), patterns...), input: input})
	if len(m.blacklist) > m.maxBlacklist {
		m.blacklist = m.blacklist[len(m.blacklist)-m.maxBlacklist:]
	}
}

// isBlacklisted: a pair is considered
// blacklisted if it shares at least one pattern with a blacklisted
// entry AND one input is a substring of the other.
func (m *Matcher) isBlacklisted(patterns []string, input string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range m.blacklist {
		if !sharesPattern(entry.patterns, patterns) {
			continue
		}
		if strings.Contains(input, entry.input) || strings.Contains(entry.input, input) {
			return true
		}
	}
	return false
}

func sharesPattern(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, p := range a {
		set[p] = true
	}
	for _, p := range b {
		if set[p] {
			return true
		}
	}
	return false
}

// Close drains the current worker with a bounded timeout and discards
// it. It is safe to call Close without further use of the Matcher.
func (m *Matcher) Close(drainTimeout time.Duration) {
	m.jobsMu.Lock()
	close(m.jobs)
	stopped := m.stopped
	m.jobsMu.Unlock()

	select {
	case <-stopped:
	case <-time.After(drainTimeout):
		m.logger.Warn("regexmatch worker did not drain within timeout, abandoning")
	}
}

// BlacklistLen reports the current blacklist size; exposed for tests.
func (m *Matcher) BlacklistLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blacklist)
}
