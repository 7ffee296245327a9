package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "instance-scheduler",
	Short: "Start and stop EC2 instances on cron schedules",
	Long: `instance-scheduler keeps EC2 fleets on a timetable.

Schedules live in DynamoDB. Each schedule has a name, a start or stop
action and a five-field cron rule. Instances opt in by carrying a tag
whose value is the schedule name. On every sweep the scheduler checks
which schedules are due, finds the tagged instances across all
configured regions and starts or stops whatever is in the wrong state.

Examples:
  # Run the HTTP API with periodic sweeps
  instance-scheduler serve

  # One sweep, then exit
  instance-scheduler sweep

  # Stop tagged instances every night at 22:00 UTC
  instance-scheduler schedule create --name nightly --action stop --cron "0 22 * * *"

  # Enroll an instance
  instance-scheduler tag --region us-east-1 --instance-id i-0abc123 --schedule nightly`,
	Version: Version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}
