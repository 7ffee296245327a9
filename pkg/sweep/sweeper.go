package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aws/smithy-go"

	"github.com/dnisha/aws-instance-schedular/pkg/compute"
	"github.com/dnisha/aws-instance-schedular/pkg/scheduler"
)

// ScheduleSource loads the schedules eligible for evaluation.
type ScheduleSource interface {
	ListActiveSchedules(ctx context.Context) ([]scheduler.ScheduleRecord, error)
}

// InstanceService is the slice of the compute client the sweeper needs.
type InstanceService interface {
	ListInstances(ctx context.Context, tagSelector string) (map[string][]compute.Instance, error)
	StartInstance(ctx context.Context, region, instanceID string) error
	StopInstance(ctx context.Context, region, instanceID string) error
}

// Sweeper runs the evaluation pass: load active schedules, match each against
// the clock, and apply start/stop actions to the instances tagged for the due
// ones. All collaborators are injected; the sweeper holds no global state.
type Sweeper struct {
	store   ScheduleSource
	compute InstanceService
	logger  *slog.Logger
	now     func() time.Time
}

// NewSweeper wires a sweeper to its collaborators.
func NewSweeper(store ScheduleSource, computeSvc InstanceService, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:   store,
		compute: computeSvc,
		logger:  logger,
		now:     time.Now,
	}
}

// Run performs one sweep and returns its aggregate result.
//
// A failure to load the active schedule list fails the whole invocation: a
// silently incomplete schedule list is worse than none, and the next tick
// retries. Everything past that point is best effort: a malformed timing
// rule skips its schedule, a rejected start/stop becomes an error record, and
// the sweep always runs to completion.
func (s *Sweeper) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		StartedAt:   s.now().UTC(),
		Transitions: []Transition{},
		Errors:      []ErrorRecord{},
	}

	schedules, err := s.store.ListActiveSchedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active schedules: %w", err)
	}
	result.SchedulesConsidered = len(schedules)

	s.logger.Debug("sweep started", "active_schedules", len(schedules))

	for _, schedule := range schedules {
		s.runSchedule(ctx, schedule, result)
	}

	result.FinishedAt = s.now().UTC()
	s.logger.Info("sweep completed",
		"schedules_processed", result.SchedulesConsidered,
		"instances_modified", result.InstancesModified,
		"errors", len(result.Errors),
		"duration", result.FinishedAt.Sub(result.StartedAt))

	return result, nil
}

func (s *Sweeper) runSchedule(ctx context.Context, schedule scheduler.ScheduleRecord, result *Result) {
	logger := s.logger.With("schedule", schedule.Name)

	due, err := schedule.DueAt(s.now())
	if err != nil {
		// Matching fails closed: a malformed rule means not due, and one bad
		// schedule must not halt the sweep.
		logger.Warn("skipping schedule with invalid timing rule", "error", err)
		return
	}
	if !due {
		logger.Debug("schedule not due")
		return
	}

	logger.Info("schedule due", "action", schedule.Action, "rule", schedule.CronExpression)

	byRegion, err := s.compute.ListInstances(ctx, schedule.Name)
	if err != nil {
		// Partial catalogs are usable; instances from healthy regions still
		// get their transition this minute.
		logger.Warn("instance listing incomplete", "error", err)
	}

	for _, region := range sortedRegions(byRegion) {
		for _, instance := range byRegion[region] {
			s.applyAction(ctx, schedule, instance, result, logger)
		}
	}
}

func (s *Sweeper) applyAction(ctx context.Context, schedule scheduler.ScheduleRecord, instance compute.Instance, result *Result, logger *slog.Logger) {
	decision, ok := Resolve(schedule.Action, instance.State)
	if !ok {
		logger.Debug("no transition applies",
			"instance_id", instance.InstanceID,
			"state", instance.State)
		return
	}

	var err error
	switch decision.Action {
	case scheduler.ActionStart:
		err = s.compute.StartInstance(ctx, instance.Region, instance.InstanceID)
	case scheduler.ActionStop:
		err = s.compute.StopInstance(ctx, instance.Region, instance.InstanceID)
	}

	if err != nil {
		logger.Error("instance action failed",
			"instance_id", instance.InstanceID,
			"region", instance.Region,
			"action", decision.Action,
			"error", err)
		result.Errors = append(result.Errors, ErrorRecord{
			InstanceID: instance.InstanceID,
			Region:     instance.Region,
			Action:     string(decision.Action),
			Message:    remoteErrorMessage(err),
		})
		return
	}

	logger.Info("instance transition requested",
		"instance_id", instance.InstanceID,
		"instance_name", instance.Name,
		"region", instance.Region,
		"action", decision.Action,
		"from_state", decision.From,
		"to_state", decision.To)

	result.Transitions = append(result.Transitions, Transition{
		InstanceID:   instance.InstanceID,
		InstanceName: instance.Name,
		Region:       instance.Region,
		Schedule:     schedule.Name,
		Action:       decision.Action,
		FromState:    decision.From,
		ToState:      decision.To,
	})
	result.InstancesModified++
}

// remoteErrorMessage prefers the service error code over Go error chains in
// the record handed back to operators.
func remoteErrorMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err.Error()
}

func sortedRegions(byRegion map[string][]compute.Instance) []string {
	regions := make([]string, 0, len(byRegion))
	for region := range byRegion {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}
