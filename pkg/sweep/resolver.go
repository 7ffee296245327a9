// Package sweep evaluates schedules against the current time and applies the
// resulting start/stop actions across regions, aggregating one result per run.
package sweep

import (
	"time"

	"github.com/dnisha/aws-instance-schedular/pkg/compute"
	"github.com/dnisha/aws-instance-schedular/pkg/scheduler"
)

// Decision is a resolved state transition for one instance.
type Decision struct {
	Action scheduler.Action
	From   compute.InstanceState
	To     compute.InstanceState
}

// Resolve decides whether an action applies to an instance in the given
// state. Exactly two transitions are live:
//
//	start + stopped -> pending
//	stop  + running -> stopping
//
// Every other combination, including an unrecognized action string, is a
// no-op and must not reach the compute API. Action matching is
// case-insensitive. Because the preconditions are the transition targets'
// complements, re-running a sweep within the same due minute resolves to
// no-ops once instances have left their precondition state.
func Resolve(rawAction string, state compute.InstanceState) (Decision, bool) {
	action, err := scheduler.ParseAction(rawAction)
	if err != nil {
		return Decision{}, false
	}

	switch {
	case action == scheduler.ActionStart && state == compute.StateStopped:
		return Decision{Action: action, From: state, To: compute.StatePending}, true
	case action == scheduler.ActionStop && state == compute.StateRunning:
		return Decision{Action: action, From: state, To: compute.StateStopping}, true
	default:
		return Decision{}, false
	}
}

// Transition records one successfully requested state change.
type Transition struct {
	InstanceID   string                `json:"instance_id"`
	InstanceName string                `json:"instance_name"`
	Region       string                `json:"region"`
	Schedule     string                `json:"schedule"`
	Action       scheduler.Action      `json:"action"`
	FromState    compute.InstanceState `json:"from_state"`
	ToState      compute.InstanceState `json:"to_state"`
}

// ErrorRecord captures a compute API rejection for a single instance. It
// never aborts the sweep that produced it.
type ErrorRecord struct {
	InstanceID string `json:"instance_id"`
	Region     string `json:"region"`
	Action     string `json:"action_attempted"`
	Message    string `json:"error"`
}

// Result aggregates one sweep run. It is rebuilt from scratch every run and
// never merged across runs.
type Result struct {
	StartedAt           time.Time     `json:"started_at"`
	FinishedAt          time.Time     `json:"finished_at"`
	SchedulesConsidered int           `json:"schedules_processed"`
	InstancesModified   int           `json:"instances_modified"`
	Transitions         []Transition  `json:"state_changes"`
	Errors              []ErrorRecord `json:"errors"`
}
