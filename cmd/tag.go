package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	tagRegion     string
	tagInstanceID string
	tagSchedule   string
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Enroll an instance in a schedule",
	Long: `Tags an EC2 instance so sweeps pick it up. The tag key comes from
the configuration; its value is the schedule name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}

		if err := app.compute.TagInstance(ctx, tagRegion, tagInstanceID, tagSchedule); err != nil {
			return err
		}

		fmt.Printf("Instance %s tagged %s=%s\n",
			tagInstanceID, app.compute.ScheduleTagKey(), tagSchedule)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tagCmd)
	tagCmd.Flags().StringVar(&tagRegion, "region", "", "Region the instance lives in")
	tagCmd.Flags().StringVar(&tagInstanceID, "instance-id", "", "Instance to enroll")
	tagCmd.Flags().StringVar(&tagSchedule, "schedule", "", "Schedule name to enroll in")
	tagCmd.MarkFlagRequired("region")
	tagCmd.MarkFlagRequired("instance-id")
	tagCmd.MarkFlagRequired("schedule")
}
