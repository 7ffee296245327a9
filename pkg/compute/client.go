package compute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// ErrUnknownRegion is returned when an operation names a region outside the
// configured set.
var ErrUnknownRegion = errors.New("compute: unknown region")

// EC2API defines the EC2 operations the client uses, per region.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error)
}

// Client holds one EC2 client per configured region plus the filter settings
// applied to every instance listing. It is constructed once and injected into
// whatever needs compute access; there are no package-level connections.
type Client struct {
	regions         map[string]EC2API
	regionOrder     []string
	tagKey          string
	stateIncludeSet []InstanceState
	nameExcludes    []string
	logger          *slog.Logger
}

// Options tunes the filter behavior. Zero values fall back to the defaults
// from the data model.
type Options struct {
	ScheduleTagKey      string
	StateIncludeSet     []InstanceState
	NameExcludePatterns []string
	Logger              *slog.Logger
}

// NewClient builds a regional EC2 client set from a base AWS config.
func NewClient(cfg aws.Config, regions []string, opts Options) (*Client, error) {
	if len(regions) == 0 {
		return nil, errors.New("compute: at least one region is required")
	}

	clients := make(map[string]EC2API, len(regions))
	order := make([]string, 0, len(regions))
	for _, region := range regions {
		regional := cfg.Copy()
		regional.Region = region
		clients[region] = ec2.NewFromConfig(regional)
		order = append(order, region)
	}
	sort.Strings(order)

	c := &Client{
		regions:         clients,
		regionOrder:     order,
		tagKey:          opts.ScheduleTagKey,
		stateIncludeSet: opts.StateIncludeSet,
		nameExcludes:    opts.NameExcludePatterns,
		logger:          opts.Logger,
	}
	if c.tagKey == "" {
		c.tagKey = DefaultScheduleTagKey
	}
	if c.stateIncludeSet == nil {
		c.stateIncludeSet = DefaultStateIncludeSet
	}
	if c.nameExcludes == nil {
		c.nameExcludes = DefaultNameExcludePatterns
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Regions returns the configured region names in stable order.
func (c *Client) Regions() []string {
	return c.regionOrder
}

// ScheduleTagKey returns the tag key used to associate instances with
// schedules.
func (c *Client) ScheduleTagKey() string {
	return c.tagKey
}

// ListInstances queries every configured region and returns the instances
// that pass the state and name filters, grouped by region. When tagSelector
// is non-empty only instances tagged with that schedule name are returned.
//
// The result always carries a key for every configured region; a region with
// no matches maps to an empty list. A region whose describe call fails is
// logged, left empty, and folded into the joined error so callers can decide
// whether a partial catalog is acceptable.
func (c *Client) ListInstances(ctx context.Context, tagSelector string) (map[string][]Instance, error) {
	result := make(map[string][]Instance, len(c.regionOrder))
	var regionErrs []error

	for _, region := range c.regionOrder {
		instances, err := c.listRegion(ctx, region, tagSelector)
		if err != nil {
			c.logger.Warn("instance listing failed for region", "region", region, "error", err)
			regionErrs = append(regionErrs, fmt.Errorf("region %s: %w", region, err))
			result[region] = []Instance{}
			continue
		}
		result[region] = instances
	}

	return result, errors.Join(regionErrs...)
}

func (c *Client) listRegion(ctx context.Context, region, tagSelector string) ([]Instance, error) {
	client := c.regions[region]

	states := make([]string, 0, len(c.stateIncludeSet))
	for _, s := range c.stateIncludeSet {
		states = append(states, string(s))
	}
	filters := []ec2types.Filter{
		{
			Name:   aws.String("instance-state-name"),
			Values: states,
		},
	}
	if tagSelector != "" {
		filters = append(filters, ec2types.Filter{
			Name:   aws.String("tag:" + c.tagKey),
			Values: []string{tagSelector},
		})
	}

	instances := []Instance{}
	input := &ec2.DescribeInstancesInput{Filters: filters}

	for {
		result, err := client.DescribeInstances(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}

		for _, reservation := range result.Reservations {
			for _, instance := range reservation.Instances {
				name := tagValue(instance.Tags, "Name")
				if c.nameExcluded(name) {
					continue
				}

				snapshot := Instance{
					InstanceID:   aws.ToString(instance.InstanceId),
					Region:       region,
					Name:         name,
					Schedule:     tagValue(instance.Tags, c.tagKey),
					InstanceType: string(instance.InstanceType),
					LaunchTime:   aws.ToTime(instance.LaunchTime),
					State:        StateUnknown,
				}
				if instance.State != nil {
					snapshot.State = ParseInstanceState(string(instance.State.Name))
				}
				instances = append(instances, snapshot)
			}
		}

		if result.NextToken == nil {
			break
		}
		input.NextToken = result.NextToken
	}

	return instances, nil
}

// nameExcluded reports whether a Name tag matches any protected pattern.
func (c *Client) nameExcluded(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range c.nameExcludes {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// StartInstance requests a start for a stopped instance in the given region.
func (c *Client) StartInstance(ctx context.Context, region, instanceID string) error {
	client, ok := c.regions[region]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRegion, region)
	}

	_, err := client.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return fmt.Errorf("start instance %s: %w", instanceID, err)
	}
	return nil
}

// StopInstance requests a stop for a running instance in the given region.
func (c *Client) StopInstance(ctx context.Context, region, instanceID string) error {
	client, ok := c.regions[region]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRegion, region)
	}

	_, err := client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return fmt.Errorf("stop instance %s: %w", instanceID, err)
	}
	return nil
}

// TagInstance attaches the schedule tag to an instance, associating it with
// the named schedule from the next sweep onwards.
func (c *Client) TagInstance(ctx context.Context, region, instanceID, scheduleName string) error {
	client, ok := c.regions[region]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRegion, region)
	}

	_, err := client.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{instanceID},
		Tags: []ec2types.Tag{
			{Key: aws.String(c.tagKey), Value: aws.String(scheduleName)},
		},
	})
	if err != nil {
		return fmt.Errorf("tag instance %s: %w", instanceID, err)
	}
	return nil
}
