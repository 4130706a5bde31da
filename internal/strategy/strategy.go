// Package strategy implements the pure predicates behind every
// StrategyConfig in a snapshot: value, numeric, date, time, network,
// payload-shape, and regex validation.
package strategy

import (
	"encoding/json"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind identifies a strategy family. Kept as a distinct type (not a bare
// string) so an unrecognized kind is a compile-time-checkable value
// rather than a typo waiting to happen, mirroring
// MatcherType enum (pkg/configvalidator/matcher).
type Kind string

const (
	Value    Kind = "VALUE_VALIDATION"
	Numeric  Kind = "NUMERIC_VALIDATION"
	Date     Kind = "DATE_VALIDATION"
	TimeKind Kind = "TIME_VALIDATION"
	Payload  Kind = "PAYLOAD_VALIDATION"
	Network  Kind = "NETWORK_VALIDATION"
	Regex    Kind = "REGEX_VALIDATION"
)

// Operation identifies the comparison applied within a strategy.
type Operation string

const (
	OpExist     Operation = "EXIST"
	OpNotExist  Operation = "NOT_EXIST"
	OpEqual     Operation = "EQUAL"
	OpNotEqual  Operation = "NOT_EQUAL"
	OpGreater   Operation = "GREATER"
	OpLower     Operation = "LOWER"
	OpBetween   Operation = "BETWEEN"
	OpHasOne    Operation = "HAS_ONE"
	OpHasAll    Operation = "HAS_ALL"
)

// validOperations is the allow-list of (Kind, Operation) pairs. A pair
// outside this table is a VALIDATION_INPUT at snapshot-parse time rather
// than a silently-undefined result at evaluation time.
var validOperations = map[Kind]map[Operation]bool{
	Value: {
		OpExist: true, OpNotExist: true, OpEqual: true, OpNotEqual: true,
	},
	Numeric: {
		OpExist: true, OpNotExist: true, OpEqual: true, OpNotEqual: true,
		OpGreater: true, OpLower: true, OpBetween: true,
	},
	Date: {
		OpLower: true, OpGreater: true, OpBetween: true,
	},
	TimeKind: {
		OpLower: true, OpGreater: true, OpBetween: true,
	},
	Payload: {
		OpHasOne: true, OpHasAll: true,
	},
	Network: {
		OpExist: true, OpNotExist: true,
	},
	Regex: {
		OpExist: true, OpNotExist: true, OpEqual: true, OpNotEqual: true,
	},
}

// ValidOperation reports whether operation is defined for kind.
func ValidOperation(kind Kind, op Operation) bool {
	ops, ok := validOperations[kind]
	if !ok {
		return false
	}
	return ops[op]
}

// RegexMatcher is the narrow interface the Regex strategy delegates to;
// satisfied by internal/regexmatch.Matcher. Kept as an interface here so
// this package never imports the regex worker machinery directly.
type RegexMatcher interface {
	TryMatch(patterns []string, input string, fullMatch bool) bool
}

// Config is the minimal view of a StrategyConfig this package needs to
// evaluate a decision; internal/snapshot.StrategyConfig satisfies it.
type Config struct {
	Kind      Kind
	Operation Operation
	Values    []string
}

// Evaluate runs the strategy named by cfg.Kind against input and returns
// the predicate result. A nil result (ok=false) means "undefined": the
// caller could not be classified (malformed numeric/date/time input),
// distinct from an evaluated false.
//
// regexMatcher may be nil only when cfg.Kind != Regex.
func Evaluate(cfg Config, input string, regexMatcher RegexMatcher) (result bool, ok bool) {
	switch cfg.Kind {
	case Value:
		return evalValue(cfg, input), true
	case Numeric:
		return evalNumeric(cfg, input)
	case Date:
		return evalDate(cfg, input)
	case TimeKind:
		return evalTime(cfg, input)
	case Payload:
		return evalPayload(cfg, input), true
	case Network:
		return evalNetwork(cfg, input), true
	case Regex:
		return evalRegex(cfg, input, regexMatcher), true
	default:
		return false, false
	}
}

func evalValue(cfg Config, input string) bool {
	member := contains(cfg.Values, input)
	switch cfg.Operation {
	case OpExist, OpEqual:
		return member
	case OpNotExist, OpNotEqual:
		return !member
	default:
		return false
	}
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

func evalNumeric(cfg Config, input string) (bool, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return false, false
	}

	switch cfg.Operation {
	case OpExist, OpEqual:
		for _, raw := range cfg.Values {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err == nil && n == v {
				return true, true
			}
		}
		return false, true
	case OpNotExist, OpNotEqual:
		for _, raw := range cfg.Values {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err == nil && n == v {
				return false, true
			}
		}
		return true, true
	case OpGreater:
		for _, raw := range cfg.Values {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err == nil && n > v {
				return true, true
			}
		}
		return false, true
	case OpLower:
		for _, raw := range cfg.Values {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err == nil && n < v {
				return true, true
			}
		}
		return false, true
	case OpBetween:
		if len(cfg.Values) < 2 {
			return false, true
		}
		lo, errLo := strconv.ParseFloat(strings.TrimSpace(cfg.Values[0]), 64)
		hi, errHi := strconv.ParseFloat(strings.TrimSpace(cfg.Values[1]), 64)
		if errLo != nil || errHi != nil {
			return false, true
		}
		return lo <= n && n <= hi, true
	default:
		return false, true
	}
}

const (
	dateTimeLayout = "2006-01-02T15:04"
	dateOnlyLayout = "2006-01-02"
	timeOnlyLayout = "15:04"
)

func parseDateValue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateTimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(dateOnlyLayout, s)
}

func evalDate(cfg Config, input string) (bool, bool) {
	t, err := parseDateValue(input)
	if err != nil {
		return false, false
	}

	switch cfg.Operation {
	case OpLower:
		for _, raw := range cfg.Values {
			v, err := parseDateValue(raw)
			if err == nil && !t.After(v) {
				return true, true
			}
		}
		return false, true
	case OpGreater:
		for _, raw := range cfg.Values {
			v, err := parseDateValue(raw)
			if err == nil && !t.Before(v) {
				return true, true
			}
		}
		return false, true
	case OpBetween:
		if len(cfg.Values) < 2 {
			return false, true
		}
		lo, errLo := parseDateValue(cfg.Values[0])
		hi, errHi := parseDateValue(cfg.Values[1])
		if errLo != nil || errHi != nil {
			return false, true
		}
		return !t.Before(lo) && !t.After(hi), true
	default:
		return false, true
	}
}

func parseTimeValue(s string) (time.Time, error) {
	return time.Parse(timeOnlyLayout, strings.TrimSpace(s))
}

func evalTime(cfg Config, input string) (bool, bool) {
	t, err := parseTimeValue(input)
	if err != nil {
		return false, false
	}

	switch cfg.Operation {
	case OpLower:
		for _, raw := range cfg.Values {
			v, err := parseTimeValue(raw)
			if err == nil && !t.After(v) {
				return true, true
			}
		}
		return false, true
	case OpGreater:
		for _, raw := range cfg.Values {
			v, err := parseTimeValue(raw)
			if err == nil && !t.Before(v) {
				return true, true
			}
		}
		return false, true
	case OpBetween:
		if len(cfg.Values) < 2 {
			return false, true
		}
		lo, errLo := parseTimeValue(cfg.Values[0])
		hi, errHi := parseTimeValue(cfg.Values[1])
		if errLo != nil || errHi != nil {
			return false, true
		}
		return !t.Before(lo) && !t.After(hi), true
	default:
		return false, true
	}
}

// evalPayload parses input as a JSON object, flattens it to a set of dot
// paths (arrays flattened without preserving index, a deliberate
// simplification), and checks membership of cfg.Values.
func evalPayload(cfg Config, input string) bool {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(input), &doc); err != nil {
		return false
	}

	paths := make(map[string]bool)
	flattenPaths("", doc, paths)

	switch cfg.Operation {
	case OpHasOne:
		for _, v := range cfg.Values {
			if paths[v] {
				return true
			}
		}
		return false
	case OpHasAll:
		for _, v := range cfg.Values {
			if !paths[v] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func flattenPaths(prefix string, node interface{}, out map[string]bool) {
	switch v := node.(type) {
	case map[string]interface{}:
		for key, child := range v {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			out[path] = true
			flattenPaths(path, child, out)
		}
	case []interface{}:
		for _, item := range v {
			// Arrays are flattened without an index segment: two
			// different positions become indistinguishable paths.
			flattenPaths(prefix, item, out)
		}
	}
}

var cidrPattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}/(\d|[12]\d|3[0-2])$`)

func evalNetwork(cfg Config, input string) bool {
	ip := net.ParseIP(strings.TrimSpace(input))

	matched := false
	for _, raw := range cfg.Values {
		raw = strings.TrimSpace(raw)
		if cidrPattern.MatchString(raw) {
			_, ipNet, err := net.ParseCIDR(raw)
			if err == nil && ip != nil && ipNet.Contains(ip) {
				matched = true
				break
			}
			continue
		}
		if raw == strings.TrimSpace(input) {
			matched = true
			break
		}
	}

	switch cfg.Operation {
	case OpExist:
		return matched
	case OpNotExist:
		return !matched
	default:
		return false
	}
}

func evalRegex(cfg Config, input string, matcher RegexMatcher) bool {
	if matcher == nil {
		return false
	}
	fullMatch := cfg.Operation == OpEqual || cfg.Operation == OpNotEqual
	matched := matcher.TryMatch(cfg.Values, input, fullMatch)

	switch cfg.Operation {
	case OpExist, OpEqual:
		return matched
	case OpNotExist, OpNotEqual:
		return !matched
	default:
		return false
	}
}

// DescribeKind returns the wire name of k, the same text the resolver's
// "Strategy '<s>' ..." reasons print.
func DescribeKind(k Kind) string {
	return string(k)
}
