package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type mockSSMClient struct {
	getParameterFunc func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

func (m *mockSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	return m.getParameterFunc(ctx, params, optFns...)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.DynamoDBRegion != "ap-south-1" {
		t.Errorf("DynamoDBRegion = %q, want ap-south-1", cfg.DynamoDBRegion)
	}
	if cfg.ConfigTable != "instance-scheduler-ConfigTable" {
		t.Errorf("ConfigTable = %q, want instance-scheduler-ConfigTable", cfg.ConfigTable)
	}
	if len(cfg.Regions) != 3 {
		t.Errorf("Regions = %v, want three defaults", cfg.Regions)
	}
	if cfg.ScheduleTagKey != "ScheduledFor" {
		t.Errorf("ScheduleTagKey = %q, want ScheduledFor", cfg.ScheduleTagKey)
	}
	if cfg.SweepInterval != 60*time.Second {
		t.Errorf("SweepInterval = %s, want 60s", cfg.SweepInterval)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
config_table: staging-schedules
regions:
  - us-west-2
sweep_interval: 5m
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(context.Background(), nil, path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ConfigTable != "staging-schedules" {
		t.Errorf("ConfigTable = %q, want staging-schedules", cfg.ConfigTable)
	}
	if len(cfg.Regions) != 1 || cfg.Regions[0] != "us-west-2" {
		t.Errorf("Regions = %v, want [us-west-2]", cfg.Regions)
	}
	if cfg.SweepInterval != 5*time.Minute {
		t.Errorf("SweepInterval = %s, want 5m", cfg.SweepInterval)
	}
	// Untouched fields keep defaults.
	if cfg.DynamoDBRegion != "ap-south-1" {
		t.Errorf("DynamoDBRegion = %q, want default ap-south-1", cfg.DynamoDBRegion)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), nil, filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v, want missing file tolerated", err)
	}
	if cfg.ConfigTable != "instance-scheduler-ConfigTable" {
		t.Errorf("ConfigTable = %q, want default", cfg.ConfigTable)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("regions: {not a list"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(context.Background(), nil, path); err == nil {
		t.Fatal("Load() error = nil, want parse failure")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("config_table: from-file\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SCHEDULER_CONFIG_TABLE", "from-env")
	t.Setenv("SCHEDULER_REGIONS", "eu-west-1, eu-west-2")
	t.Setenv("SCHEDULER_SWEEP_INTERVAL", "90s")

	cfg, err := Load(context.Background(), nil, path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ConfigTable != "from-env" {
		t.Errorf("ConfigTable = %q, want from-env", cfg.ConfigTable)
	}
	if len(cfg.Regions) != 2 || cfg.Regions[1] != "eu-west-2" {
		t.Errorf("Regions = %v, want [eu-west-1 eu-west-2]", cfg.Regions)
	}
	if cfg.SweepInterval != 90*time.Second {
		t.Errorf("SweepInterval = %s, want 90s", cfg.SweepInterval)
	}
}

func TestLoadSSMParameters(t *testing.T) {
	client := &mockSSMClient{
		getParameterFunc: func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
			switch aws.ToString(params.Name) {
			case "/instance-scheduler/config_table":
				return &ssm.GetParameterOutput{
					Parameter: &ssmtypes.Parameter{Value: aws.String("ssm-table")},
				}, nil
			default:
				return nil, errors.New("ParameterNotFound")
			}
		},
	}

	cfg, err := Load(context.Background(), client, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ConfigTable != "ssm-table" {
		t.Errorf("ConfigTable = %q, want ssm-table", cfg.ConfigTable)
	}
	// The regions parameter was absent, so defaults survive.
	if len(cfg.Regions) != 3 {
		t.Errorf("Regions = %v, want defaults", cfg.Regions)
	}
}

func TestLoadRejectsEmptyRegions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("regions: []\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SCHEDULER_REGIONS", "   ")

	if _, err := Load(context.Background(), nil, path); err == nil {
		t.Fatal("Load() error = nil, want validation failure for empty regions")
	}
}
