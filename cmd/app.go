package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/dnisha/aws-instance-schedular/pkg/compute"
	"github.com/dnisha/aws-instance-schedular/pkg/config"
	"github.com/dnisha/aws-instance-schedular/pkg/logging"
	"github.com/dnisha/aws-instance-schedular/pkg/scheduler"
	"github.com/dnisha/aws-instance-schedular/pkg/sweep"
)

// app bundles the wired-up collaborators every command works with.
type app struct {
	cfg     *config.Config
	awsCfg  aws.Config
	logger  *slog.Logger
	store   *scheduler.Store
	compute *compute.Client
	sweeper *sweep.Sweeper
}

// buildApp loads configuration and assembles the store, the regional EC2
// clients and the sweeper on top of a shared AWS credential chain.
func buildApp(ctx context.Context) (*app, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	cfg, err := config.Load(ctx, ssm.NewFromConfig(awsCfg), configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger := logging.New(cfg.LogLevel)

	// Environments without an ambient region still need one for the
	// non-regional clients (STS, SSM).
	if awsCfg.Region == "" {
		awsCfg.Region = cfg.DynamoDBRegion
	}

	storeCfg := awsCfg.Copy()
	storeCfg.Region = cfg.DynamoDBRegion
	store := scheduler.NewStore(storeCfg, cfg.ConfigTable)

	computeClient, err := compute.NewClient(awsCfg, cfg.Regions, compute.Options{
		ScheduleTagKey:      cfg.ScheduleTagKey,
		NameExcludePatterns: cfg.NameExcludePatterns,
		Logger:              logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		awsCfg:  awsCfg,
		logger:  logger,
		store:   store,
		compute: computeClient,
		sweeper: sweep.NewSweeper(store, computeClient, logger),
	}, nil
}

// verifyCredentials fails fast when the credential chain cannot make a
// single signed call, instead of erroring once per region mid-sweep.
func verifyCredentials(ctx context.Context, app *app) error {
	identity, err := sts.NewFromConfig(app.awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("AWS credentials check failed: %w", err)
	}

	app.logger.Info("AWS credentials verified",
		"account", deref(identity.Account),
		"arn", deref(identity.Arn))
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
