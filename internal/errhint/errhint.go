// Package errhint matches database error messages against configured
// patterns and returns guidance hints to append to tool error output.
package errhint

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule maps an error message regex pattern to a guidance hint.
type Rule struct {
	Pattern string
	Hint    string
}

type compiledRule struct {
	pattern *regexp.Regexp
	hint    string
}

// Matcher checks error messages against rules and returns guidance hints.
type Matcher struct {
	rules []compiledRule
}

// NewMatcher creates a new Matcher. Returns an error on invalid regex patterns.
func NewMatcher(rules []Rule) (*Matcher, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("errhint: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, hint: r.Hint}
	}
	return &Matcher{rules: compiled}, nil
}

// Match checks the error message against all rules (top to bottom) and
// returns all matching hints joined with newlines. Empty string if none match.
func (m *Matcher) Match(errMsg string) string {
	var hints []string
	for _, rule := range m.rules {
		if rule.pattern.MatchString(errMsg) {
			hints = append(hints, rule.hint)
		}
	}
	return strings.Join(hints, "\n")
}

// MatchedPatterns returns the regex patterns that matched the given error
// message. Returns nil if no match.
func (m *Matcher) MatchedPatterns(errMsg string) []string {
	var patterns []string
	for _, rule := range m.rules {
		if rule.pattern.MatchString(errMsg) {
			patterns = append(patterns, rule.pattern.String())
		}
	}
	return patterns
}
