// Package config loads scheduler configuration. Precedence, highest
// first: environment variables > config file > SSM Parameter Store >
// built-in defaults.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"gopkg.in/yaml.v3"

	"github.com/dnisha/aws-instance-schedular/pkg/compute"
	"github.com/dnisha/aws-instance-schedular/pkg/scheduler"
)

const (
	defaultDynamoDBRegion = "ap-south-1"
	defaultBindAddress    = ":8080"
	defaultSweepInterval  = 60 * time.Second

	// SSM parameter paths
	ssmTablePath   = "/instance-scheduler/config_table"
	ssmRegionsPath = "/instance-scheduler/regions"
)

var defaultRegions = []string{"eu-central-1", "us-east-1", "ap-south-1"}

// SSMAPI is the subset of the SSM client used for parameter lookups.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Config holds everything the scheduler needs at runtime.
type Config struct {
	DynamoDBRegion      string        `yaml:"dynamodb_region"`
	ConfigTable         string        `yaml:"config_table"`
	Regions             []string      `yaml:"regions"`
	ScheduleTagKey      string        `yaml:"schedule_tag_key"`
	NameExcludePatterns []string      `yaml:"name_exclude_patterns"`
	SweepInterval       time.Duration `yaml:"sweep_interval"`
	BindAddress         string        `yaml:"bind_address"`
	LogLevel            string        `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DynamoDBRegion:      defaultDynamoDBRegion,
		ConfigTable:         scheduler.DefaultTableName,
		Regions:             append([]string(nil), defaultRegions...),
		ScheduleTagKey:      compute.DefaultScheduleTagKey,
		NameExcludePatterns: append([]string(nil), compute.DefaultNameExcludePatterns...),
		SweepInterval:       defaultSweepInterval,
		BindAddress:         defaultBindAddress,
		LogLevel:            "info",
	}
}

// Load builds the effective configuration. The SSM client may be nil
// when Parameter Store lookup is not wanted; a missing config file is
// not an error.
func Load(ctx context.Context, ssmClient SSMAPI, configPath string) (*Config, error) {
	cfg := Default()

	if ssmClient != nil {
		cfg.applySSM(ctx, ssmClient)
	}

	if configPath != "" {
		if err := cfg.applyFile(configPath); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySSM overlays parameters from SSM. Lookup failures are treated
// as "parameter not set" so the scheduler still works without any
// Parameter Store provisioning.
func (c *Config) applySSM(ctx context.Context, client SSMAPI) {
	if v := getParameter(ctx, client, ssmTablePath); v != "" {
		c.ConfigTable = v
	}
	if v := getParameter(ctx, client, ssmRegionsPath); v != "" {
		c.Regions = splitList(v)
	}
}

func getParameter(ctx context.Context, client SSMAPI, name string) string {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(name),
	})
	if err != nil || out.Parameter == nil {
		return ""
	}
	return aws.ToString(out.Parameter.Value)
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if fileCfg.DynamoDBRegion != "" {
		c.DynamoDBRegion = fileCfg.DynamoDBRegion
	}
	if fileCfg.ConfigTable != "" {
		c.ConfigTable = fileCfg.ConfigTable
	}
	if len(fileCfg.Regions) > 0 {
		c.Regions = fileCfg.Regions
	}
	if fileCfg.ScheduleTagKey != "" {
		c.ScheduleTagKey = fileCfg.ScheduleTagKey
	}
	if len(fileCfg.NameExcludePatterns) > 0 {
		c.NameExcludePatterns = fileCfg.NameExcludePatterns
	}
	if fileCfg.SweepInterval > 0 {
		c.SweepInterval = fileCfg.SweepInterval
	}
	if fileCfg.BindAddress != "" {
		c.BindAddress = fileCfg.BindAddress
	}
	if fileCfg.LogLevel != "" {
		c.LogLevel = fileCfg.LogLevel
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SCHEDULER_DYNAMODB_REGION"); v != "" {
		c.DynamoDBRegion = v
	}
	if v := os.Getenv("SCHEDULER_CONFIG_TABLE"); v != "" {
		c.ConfigTable = v
	}
	if v := os.Getenv("SCHEDULER_REGIONS"); v != "" {
		c.Regions = splitList(v)
	}
	if v := os.Getenv("SCHEDULER_TAG_KEY"); v != "" {
		c.ScheduleTagKey = v
	}
	if v := os.Getenv("SCHEDULER_NAME_EXCLUDES"); v != "" {
		c.NameExcludePatterns = splitList(v)
	}
	if v := os.Getenv("SCHEDULER_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.SweepInterval = d
		}
	}
	if v := os.Getenv("SCHEDULER_BIND_ADDRESS"); v != "" {
		c.BindAddress = v
	}
	if v := os.Getenv("SCHEDULER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if c.DynamoDBRegion == "" {
		return fmt.Errorf("dynamodb_region must not be empty")
	}
	if c.ConfigTable == "" {
		return fmt.Errorf("config_table must not be empty")
	}
	if len(c.Regions) == 0 {
		return fmt.Errorf("at least one region must be configured")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive, got %s", c.SweepInterval)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
