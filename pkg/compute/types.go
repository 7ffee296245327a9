// Package compute wraps the per-region EC2 clients behind the filtering and
// state-transition operations the scheduler needs.
package compute

import (
	"time"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// InstanceState is the lifecycle state of an EC2 instance. Raw API strings
// are normalized at the boundary; anything unrecognized becomes StateUnknown
// rather than leaking free text into the core.
type InstanceState string

const (
	StatePending      InstanceState = "pending"
	StateRunning      InstanceState = "running"
	StateStopping     InstanceState = "stopping"
	StateStopped      InstanceState = "stopped"
	StateShuttingDown InstanceState = "shutting-down"
	StateTerminated   InstanceState = "terminated"
	StateUnknown      InstanceState = "unknown"
)

// ParseInstanceState normalizes a raw instance-state-name value.
func ParseInstanceState(raw string) InstanceState {
	switch InstanceState(raw) {
	case StatePending, StateRunning, StateStopping, StateStopped, StateShuttingDown, StateTerminated:
		return InstanceState(raw)
	default:
		return StateUnknown
	}
}

// DefaultStateIncludeSet lists the lifecycle states eligible for filtering.
// Terminated instances are excluded: there is nothing left to start or stop.
var DefaultStateIncludeSet = []InstanceState{
	StatePending,
	StateRunning,
	StateStopping,
	StateStopped,
	StateShuttingDown,
}

// DefaultNameExcludePatterns protects resources whose Name tag marks them as
// off-limits to the scheduler. Matching is a case-insensitive substring test.
var DefaultNameExcludePatterns = []string{"CI", "terminated"}

// DefaultScheduleTagKey is the tag associating an instance with a schedule.
const DefaultScheduleTagKey = "ScheduledFor"

// Instance is an ephemeral snapshot of an EC2 instance taken during one
// filter or sweep call. Snapshots are never persisted; every sweep fetches
// fresh state.
type Instance struct {
	InstanceID   string        `json:"instance_id"`
	Region       string        `json:"region"`
	Name         string        `json:"name"`
	State        InstanceState `json:"current_state"`
	Schedule     string        `json:"schedule,omitempty"`
	InstanceType string        `json:"instance_type,omitempty"`
	LaunchTime   time.Time     `json:"launch_time,omitempty"`
}

// tagValue extracts a tag value by key from EC2 tags.
func tagValue(tags []ec2types.Tag, key string) string {
	for _, tag := range tags {
		if tag.Key != nil && *tag.Key == key && tag.Value != nil {
			return *tag.Value
		}
	}
	return ""
}
