// Package scheduler defines schedule records and their DynamoDB store.
package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dnisha/aws-instance-schedular/pkg/cron"
)

// ErrInvalidDate is returned when an expiration date cannot be parsed as a
// YYYY-MM-DD calendar date.
var ErrInvalidDate = errors.New("scheduler: invalid expiration date")

// ErrInvalidRecord wraps every Validate failure so callers can tell rejected
// input apart from backend trouble.
var ErrInvalidRecord = errors.New("scheduler: invalid schedule record")

// IsValidationError reports whether err stems from a malformed record.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRecord)
}

// Action is the instance operation a schedule applies.
type Action string

const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

// ParseAction normalizes a raw action string. Matching is case-insensitive;
// anything other than start/stop is rejected.
func ParseAction(raw string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "start":
		return ActionStart, nil
	case "stop":
		return ActionStop, nil
	default:
		return "", fmt.Errorf("scheduler: unknown action %q", raw)
	}
}

// ScheduleRecord is a named start/stop policy stored in DynamoDB. The name is
// the primary key and doubles as the tag value matched against instances.
// Records are replaced wholesale on update; there is no partial update path.
type ScheduleRecord struct {
	Name           string    `dynamodbav:"name" json:"name"`
	Type           string    `dynamodbav:"type,omitempty" json:"type,omitempty"`
	Action         string    `dynamodbav:"action" json:"action"`
	Active         bool      `dynamodbav:"active" json:"active"`
	CronExpression string    `dynamodbav:"cron_expression" json:"cron_expression"`
	Until          string    `dynamodbav:"until,omitempty" json:"until,omitempty"` // YYYY-MM-DD, empty = never expires
	CreatedAt      time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

// Validate checks the fields an operator can get wrong at creation time.
// Validation failures surface synchronously to the caller; nothing is stored.
func (r *ScheduleRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: schedule name is required", ErrInvalidRecord)
	}
	if _, err := ParseAction(r.Action); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if _, err := cron.Parse(r.CronExpression); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if r.Until != "" {
		if _, err := parseUntil(r.Until); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
	}
	return nil
}

// DueAt reports whether the schedule's timing rule matches now and the
// schedule has not expired. A non-nil error means the stored rule or
// expiration date is malformed, as opposed to a well-formed rule that simply
// does not match; callers decide how loudly to handle the difference.
func (r *ScheduleRecord) DueAt(now time.Time) (bool, error) {
	rule, err := cron.Parse(r.CronExpression)
	if err != nil {
		return false, err
	}

	if r.Until != "" {
		until, err := parseUntil(r.Until)
		if err != nil {
			return false, err
		}
		// The expiration date is inclusive: the rule stays live through the
		// whole of the until day and dies at the next midnight. Calendar
		// dates are compared component-wise so now's zone cannot shift the
		// result against the zone-less until date.
		ny, nm, nd := now.Date()
		nowDate := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
		if nowDate.After(until) {
			return false, nil
		}
	}

	return rule.Matches(now), nil
}

func parseUntil(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t, nil
}
