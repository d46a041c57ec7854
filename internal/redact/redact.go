// Package redact applies regex-based redaction to result row values
// before they leave the process.
package redact

import (
	"fmt"
	"regexp"
)

// Rule is the redactor's own rule type.
type Rule struct {
	Pattern     string
	Replacement string
}

type compiledRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Redactor applies regex redaction to row tuple values.
type Redactor struct {
	rules []compiledRule
}

// NewRedactor creates a new Redactor. Returns an error on invalid regex patterns.
func NewRedactor(rules []Rule) (*Redactor, error) {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("redact: invalid regex pattern %q: %v", r.Pattern, err)
		}
		compiled[i] = compiledRule{pattern: re, replacement: r.Replacement}
	}
	return &Redactor{rules: compiled}, nil
}

// HasRules returns true if the redactor has any rules configured.
func (r *Redactor) HasRules() bool {
	return len(r.rules) > 0
}

// RedactRows applies redaction to each value in the ordered row tuples.
// JSONB objects and arrays are walked recursively into primitive values.
func (r *Redactor) RedactRows(rows [][]any) [][]any {
	for _, row := range rows {
		for i, v := range row {
			row[i] = r.redactValue(v)
		}
	}
	return rows
}

func (r *Redactor) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		result := val
		for _, rule := range r.rules {
			result = rule.pattern.ReplaceAllString(result, rule.replacement)
		}
		return result
	case map[string]any:
		for k, inner := range val {
			val[k] = r.redactValue(inner)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = r.redactValue(item)
		}
		return val
	default:
		// Numeric, bool, nil: nothing to redact.
		return v
	}
}
