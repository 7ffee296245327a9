package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/dnisha/aws-instance-schedular/pkg/scheduler"
)

func TestWriteScheduleDetails(t *testing.T) {
	record := &scheduler.ScheduleRecord{
		Name:           "nightly",
		Type:           "office-hours",
		Action:         "stop",
		Active:         true,
		CronExpression: "0 22 * * *",
		Until:          "2025-12-31",
		CreatedAt:      time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2025, 4, 30, 9, 0, 0, 0, time.UTC),
	}

	var buf strings.Builder
	writeScheduleDetails(&buf, record)
	out := buf.String()

	for _, want := range []string{
		"Name:       nightly",
		"Type:       office-hours",
		"Action:     stop",
		"Active:     true",
		"Cron:       0 22 * * *",
		"Until:      2025-12-31",
		"Created:    2025-04-01T09:00:00Z",
		"Updated:    2025-04-30T09:00:00Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("details output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteScheduleDetailsOmitsEmptyFields(t *testing.T) {
	record := &scheduler.ScheduleRecord{
		Name:           "morning",
		Action:         "start",
		CronExpression: "0 8 * * *",
	}

	var buf strings.Builder
	writeScheduleDetails(&buf, record)
	out := buf.String()

	for _, absent := range []string{"Type:", "Until:", "Created:", "Updated:"} {
		if strings.Contains(out, absent) {
			t.Errorf("details output has %q for a zero field:\n%s", absent, out)
		}
	}
	if !strings.Contains(out, "Active:     false") {
		t.Errorf("details output missing inactive flag:\n%s", out)
	}
}
