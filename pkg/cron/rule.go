// Package cron implements the five-field timing rules used by schedules.
//
// A rule has minute, hour, day-of-month, month and day-of-week fields, each
// either a literal integer or the "*" wildcard. Ranges, steps and lists are
// not supported. A rule matches at minute granularity: it is satisfied only
// during the minute whose components equal the rule's literal fields.
package cron

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRuleFormat is returned when an expression does not have exactly
// five whitespace-separated fields.
var ErrInvalidRuleFormat = errors.New("cron: expression must have exactly 5 fields")

// Field is a single position in a rule: a wildcard or a literal value.
type Field struct {
	Wildcard bool
	Value    int
}

func (f Field) matches(v int) bool {
	return f.Wildcard || f.Value == v
}

// Rule is a parsed five-field cron expression.
type Rule struct {
	Minute     Field
	Hour       Field
	DayOfMonth Field
	Month      Field
	DayOfWeek  Field
}

// Parse parses a five-field cron expression. Each field is validated against
// its range: minute 0-59, hour 0-23, day-of-month 1-31, month 1-12,
// day-of-week 0-7 (0 and 7 both denote Sunday).
func Parse(expr string) (Rule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return Rule{}, fmt.Errorf("%w: got %d fields in %q", ErrInvalidRuleFormat, len(fields), expr)
	}

	var rule Rule
	specs := []struct {
		name     string
		raw      string
		min, max int
		dst      *Field
	}{
		{"minute", fields[0], 0, 59, &rule.Minute},
		{"hour", fields[1], 0, 23, &rule.Hour},
		{"day-of-month", fields[2], 1, 31, &rule.DayOfMonth},
		{"month", fields[3], 1, 12, &rule.Month},
		{"day-of-week", fields[4], 0, 7, &rule.DayOfWeek},
	}

	for _, spec := range specs {
		field, err := parseField(spec.raw, spec.min, spec.max)
		if err != nil {
			return Rule{}, fmt.Errorf("cron: %s field: %w", spec.name, err)
		}
		*spec.dst = field
	}

	// Cron convention: 7 is an alias for Sunday.
	if !rule.DayOfWeek.Wildcard && rule.DayOfWeek.Value == 7 {
		rule.DayOfWeek.Value = 0
	}

	return rule, nil
}

func parseField(raw string, min, max int) (Field, error) {
	if raw == "*" {
		return Field{Wildcard: true}, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return Field{}, fmt.Errorf("invalid value %q", raw)
	}
	if v < min || v > max {
		return Field{}, fmt.Errorf("value %d out of range %d-%d", v, min, max)
	}
	return Field{Value: v}, nil
}

// Matches reports whether now falls within the rule's minute. Day-of-month
// and day-of-week are conjunctive: when both are restricted, both must hold.
// Classic POSIX cron treats that case as an OR instead; the AND reading keeps
// a restricted rule from firing on extra days.
func (r Rule) Matches(now time.Time) bool {
	if !r.Minute.matches(now.Minute()) {
		return false
	}
	if !r.Hour.matches(now.Hour()) {
		return false
	}
	if !r.DayOfMonth.matches(now.Day()) {
		return false
	}
	if !r.Month.matches(int(now.Month())) {
		return false
	}
	// time.Weekday numbers Sunday as 0, same as cron after 7 is normalized.
	return r.DayOfWeek.matches(int(now.Weekday()))
}

// String reconstructs the canonical expression form of the rule.
func (r Rule) String() string {
	parts := make([]string, 0, 5)
	for _, f := range []Field{r.Minute, r.Hour, r.DayOfMonth, r.Month, r.DayOfWeek} {
		if f.Wildcard {
			parts = append(parts, "*")
		} else {
			parts = append(parts, strconv.Itoa(f.Value))
		}
	}
	return strings.Join(parts, " ")
}
