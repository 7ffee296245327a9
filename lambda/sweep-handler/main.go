package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/dnisha/aws-instance-schedular/pkg/compute"
	"github.com/dnisha/aws-instance-schedular/pkg/config"
	"github.com/dnisha/aws-instance-schedular/pkg/logging"
	"github.com/dnisha/aws-instance-schedular/pkg/scheduler"
	"github.com/dnisha/aws-instance-schedular/pkg/sweep"
)

// SweepEvent is the Lambda input event. Both fields are optional; an empty
// event sweeps with the environment configuration.
type SweepEvent struct {
	ConfigTable string   `json:"config_table,omitempty"`
	Regions     []string `json:"regions,omitempty"`
}

func main() {
	lambda.Start(handler)
}

// handler performs exactly one sweep per invocation. EventBridge owns the
// schedule that makes this periodic.
func handler(ctx context.Context, event SweepEvent) (*sweep.Result, error) {
	cfg := config.Default()
	if v := os.Getenv("SCHEDULER_CONFIG_TABLE"); v != "" {
		cfg.ConfigTable = v
	}
	if v := os.Getenv("SCHEDULER_REGIONS"); v != "" {
		cfg.Regions = splitRegions(v)
	}
	if v := os.Getenv("SCHEDULER_DYNAMODB_REGION"); v != "" {
		cfg.DynamoDBRegion = v
	}
	if event.ConfigTable != "" {
		cfg.ConfigTable = event.ConfigTable
	}
	if len(event.Regions) > 0 {
		cfg.Regions = event.Regions
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("Failed to load AWS config: %v", err)
		return nil, err
	}

	storeCfg := awsCfg.Copy()
	storeCfg.Region = cfg.DynamoDBRegion
	store := scheduler.NewStore(storeCfg, cfg.ConfigTable)

	logger := logging.New(os.Getenv("SCHEDULER_LOG_LEVEL"))
	computeClient, err := compute.NewClient(awsCfg, cfg.Regions, compute.Options{
		ScheduleTagKey:      cfg.ScheduleTagKey,
		NameExcludePatterns: cfg.NameExcludePatterns,
		Logger:              logger,
	})
	if err != nil {
		return nil, err
	}

	return sweep.NewSweeper(store, computeClient, logger).Run(ctx)
}

func splitRegions(v string) []string {
	var regions []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			regions = append(regions, p)
		}
	}
	return regions
}
