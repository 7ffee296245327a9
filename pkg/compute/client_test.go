package compute

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// Mock EC2 client
type mockEC2Client struct {
	describeInstancesFunc func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	startInstancesFunc    func(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	stopInstancesFunc     func(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	createTagsFunc        func(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error)
}

func (m *mockEC2Client) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if m.describeInstancesFunc != nil {
		return m.describeInstancesFunc(ctx, params, optFns...)
	}
	return &ec2.DescribeInstancesOutput{}, nil
}

func (m *mockEC2Client) StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	if m.startInstancesFunc != nil {
		return m.startInstancesFunc(ctx, params, optFns...)
	}
	return &ec2.StartInstancesOutput{}, nil
}

func (m *mockEC2Client) StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	if m.stopInstancesFunc != nil {
		return m.stopInstancesFunc(ctx, params, optFns...)
	}
	return &ec2.StopInstancesOutput{}, nil
}

func (m *mockEC2Client) CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error) {
	if m.createTagsFunc != nil {
		return m.createTagsFunc(ctx, params, optFns...)
	}
	return &ec2.CreateTagsOutput{}, nil
}

func testClient(regions map[string]EC2API) *Client {
	order := make([]string, 0, len(regions))
	for r := range regions {
		order = append(order, r)
	}
	return &Client{
		regions:         regions,
		regionOrder:     order,
		tagKey:          DefaultScheduleTagKey,
		stateIncludeSet: DefaultStateIncludeSet,
		nameExcludes:    DefaultNameExcludePatterns,
		logger:          slog.Default(),
	}
}

func reservation(instances ...ec2types.Instance) []ec2types.Reservation {
	return []ec2types.Reservation{{Instances: instances}}
}

func ec2Instance(id, name, state, schedule string) ec2types.Instance {
	tags := []ec2types.Tag{}
	if name != "" {
		tags = append(tags, ec2types.Tag{Key: aws.String("Name"), Value: aws.String(name)})
	}
	if schedule != "" {
		tags = append(tags, ec2types.Tag{Key: aws.String(DefaultScheduleTagKey), Value: aws.String(schedule)})
	}
	return ec2types.Instance{
		InstanceId: aws.String(id),
		Tags:       tags,
		State:      &ec2types.InstanceState{Name: ec2types.InstanceStateName(state)},
	}
}

func TestParseInstanceState(t *testing.T) {
	tests := []struct {
		raw  string
		want InstanceState
	}{
		{"running", StateRunning},
		{"stopped", StateStopped},
		{"shutting-down", StateShuttingDown},
		{"terminated", StateTerminated},
		{"rebooting", StateUnknown},
		{"", StateUnknown},
	}

	for _, tt := range tests {
		if got := ParseInstanceState(tt.raw); got != tt.want {
			t.Errorf("ParseInstanceState(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestListInstancesFilters(t *testing.T) {
	mockEC2 := &mockEC2Client{
		describeInstancesFunc: func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			// Server-side state filter must exclude terminated instances.
			var stateFilter *ec2types.Filter
			for i := range params.Filters {
				if aws.ToString(params.Filters[i].Name) == "instance-state-name" {
					stateFilter = &params.Filters[i]
				}
			}
			if stateFilter == nil {
				t.Fatal("DescribeInstances missing instance-state-name filter")
			}
			for _, v := range stateFilter.Values {
				if v == "terminated" {
					t.Error("state filter must not include terminated")
				}
			}

			return &ec2.DescribeInstancesOutput{
				Reservations: reservation(
					ec2Instance("i-keep", "web-server", "running", "nightly"),
					ec2Instance("i-ci", "ci-runner-3", "running", "nightly"),
					ec2Instance("i-dead", "old-terminated-box", "stopped", "nightly"),
					ec2Instance("i-noname", "", "stopped", "nightly"),
				),
			}, nil
		},
	}

	client := testClient(map[string]EC2API{"us-east-1": mockEC2})
	byRegion, err := client.ListInstances(context.Background(), "nightly")
	if err != nil {
		t.Fatalf("ListInstances() error = %v", err)
	}

	instances := byRegion["us-east-1"]
	if len(instances) != 2 {
		t.Fatalf("ListInstances() kept %d instances, want 2 (got %+v)", len(instances), instances)
	}
	for _, inst := range instances {
		if inst.InstanceID == "i-ci" {
			t.Error("instance with CI in its name must be excluded")
		}
		if inst.InstanceID == "i-dead" {
			t.Error("instance with terminated in its name must be excluded")
		}
		if inst.Region != "us-east-1" {
			t.Errorf("instance region = %q, want us-east-1", inst.Region)
		}
	}
}

func TestListInstancesTagSelector(t *testing.T) {
	var sawTagFilter bool
	mockEC2 := &mockEC2Client{
		describeInstancesFunc: func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			for _, f := range params.Filters {
				if aws.ToString(f.Name) == "tag:"+DefaultScheduleTagKey {
					sawTagFilter = true
					if len(f.Values) != 1 || f.Values[0] != "nightly" {
						t.Errorf("tag filter values = %v, want [nightly]", f.Values)
					}
				}
			}
			return &ec2.DescribeInstancesOutput{}, nil
		},
	}

	client := testClient(map[string]EC2API{"us-east-1": mockEC2})
	if _, err := client.ListInstances(context.Background(), "nightly"); err != nil {
		t.Fatalf("ListInstances() error = %v", err)
	}
	if !sawTagFilter {
		t.Error("ListInstances() did not pass the schedule tag as a server-side filter")
	}

	// Without a selector no tag filter is sent.
	sawTagFilter = false
	if _, err := client.ListInstances(context.Background(), ""); err != nil {
		t.Fatalf("ListInstances() error = %v", err)
	}
	if sawTagFilter {
		t.Error("ListInstances(\"\") should not pass a tag filter")
	}
}

func TestListInstancesEmptyRegionKeyPresent(t *testing.T) {
	client := testClient(map[string]EC2API{
		"us-east-1":    &mockEC2Client{},
		"eu-central-1": &mockEC2Client{},
	})

	byRegion, err := client.ListInstances(context.Background(), "")
	if err != nil {
		t.Fatalf("ListInstances() error = %v", err)
	}
	for _, region := range []string{"us-east-1", "eu-central-1"} {
		instances, ok := byRegion[region]
		if !ok {
			t.Errorf("region %s missing from result; empty regions must keep their key", region)
		}
		if instances == nil {
			t.Errorf("region %s maps to nil, want empty list", region)
		}
	}
}

func TestListInstancesRegionFailureIsPartial(t *testing.T) {
	mockGood := &mockEC2Client{
		describeInstancesFunc: func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			return &ec2.DescribeInstancesOutput{
				Reservations: reservation(ec2Instance("i-ok", "app", "running", "")),
			}, nil
		},
	}
	mockBad := &mockEC2Client{
		describeInstancesFunc: func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			return nil, errors.New("api outage")
		},
	}

	client := testClient(map[string]EC2API{"us-east-1": mockGood, "ap-south-1": mockBad})
	byRegion, err := client.ListInstances(context.Background(), "")
	if err == nil {
		t.Error("ListInstances() error = nil, want joined region error")
	}
	if len(byRegion["us-east-1"]) != 1 {
		t.Errorf("healthy region returned %d instances, want 1", len(byRegion["us-east-1"]))
	}
	if len(byRegion["ap-south-1"]) != 0 {
		t.Errorf("failed region returned %d instances, want 0", len(byRegion["ap-south-1"]))
	}
}

func TestListInstancesPaginates(t *testing.T) {
	calls := 0
	mockEC2 := &mockEC2Client{
		describeInstancesFunc: func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			calls++
			if calls == 1 {
				return &ec2.DescribeInstancesOutput{
					Reservations: reservation(ec2Instance("i-1", "app-1", "running", "")),
					NextToken:    aws.String("page2"),
				}, nil
			}
			if aws.ToString(params.NextToken) != "page2" {
				t.Errorf("second call NextToken = %v, want page2", params.NextToken)
			}
			return &ec2.DescribeInstancesOutput{
				Reservations: reservation(ec2Instance("i-2", "app-2", "stopped", "")),
			}, nil
		},
	}

	client := testClient(map[string]EC2API{"us-east-1": mockEC2})
	byRegion, err := client.ListInstances(context.Background(), "")
	if err != nil {
		t.Fatalf("ListInstances() error = %v", err)
	}
	if len(byRegion["us-east-1"]) != 2 {
		t.Errorf("ListInstances() = %d instances, want 2 across pages", len(byRegion["us-east-1"]))
	}
}

func TestStartStopTagUnknownRegion(t *testing.T) {
	client := testClient(map[string]EC2API{"us-east-1": &mockEC2Client{}})
	ctx := context.Background()

	if err := client.StartInstance(ctx, "mars-north-1", "i-1"); !errors.Is(err, ErrUnknownRegion) {
		t.Errorf("StartInstance() error = %v, want ErrUnknownRegion", err)
	}
	if err := client.StopInstance(ctx, "mars-north-1", "i-1"); !errors.Is(err, ErrUnknownRegion) {
		t.Errorf("StopInstance() error = %v, want ErrUnknownRegion", err)
	}
	if err := client.TagInstance(ctx, "mars-north-1", "i-1", "nightly"); !errors.Is(err, ErrUnknownRegion) {
		t.Errorf("TagInstance() error = %v, want ErrUnknownRegion", err)
	}
}

func TestTagInstance(t *testing.T) {
	mockEC2 := &mockEC2Client{
		createTagsFunc: func(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error) {
			if len(params.Resources) != 1 || params.Resources[0] != "i-tagme" {
				t.Errorf("CreateTags resources = %v, want [i-tagme]", params.Resources)
			}
			if len(params.Tags) != 1 ||
				aws.ToString(params.Tags[0].Key) != DefaultScheduleTagKey ||
				aws.ToString(params.Tags[0].Value) != "nightly" {
				t.Errorf("CreateTags tags = %+v, want %s=nightly", params.Tags, DefaultScheduleTagKey)
			}
			return &ec2.CreateTagsOutput{}, nil
		},
	}

	client := testClient(map[string]EC2API{"us-east-1": mockEC2})
	if err := client.TagInstance(context.Background(), "us-east-1", "i-tagme", "nightly"); err != nil {
		t.Errorf("TagInstance() error = %v", err)
	}
}
