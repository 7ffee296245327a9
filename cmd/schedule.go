package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dnisha/aws-instance-schedular/pkg/scheduler"
)

var (
	scheduleName   string
	scheduleAction string
	scheduleCron   string
	scheduleUntil  string
	scheduleType   string
	scheduleOff    bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage start/stop schedules",
}

var scheduleCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create or replace a schedule",
	Long: `Creates a schedule in the config table. A schedule with the same
name is replaced.

The cron rule has five fields (minute hour day-of-month month
day-of-week); each field is either * or a single number. The optional
--until date (YYYY-MM-DD) is the last day the schedule fires.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}

		record := scheduler.ScheduleRecord{
			Name:           scheduleName,
			Type:           scheduleType,
			Action:         scheduleAction,
			Active:         !scheduleOff,
			CronExpression: scheduleCron,
			Until:          scheduleUntil,
		}

		created, err := app.store.CreateSchedule(ctx, &record)
		if err != nil {
			return err
		}

		fmt.Printf("Schedule %q created: %s at %q", created.Name, created.Action, created.CronExpression)
		if created.Until != "" {
			fmt.Printf(" until %s", created.Until)
		}
		fmt.Println()
		return nil
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}

		schedules, err := app.store.ListSchedules(ctx)
		if err != nil {
			return err
		}

		if len(schedules) == 0 {
			fmt.Println("No schedules found")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tACTION\tCRON\tACTIVE\tUNTIL")
		for _, s := range schedules {
			until := s.Until
			if until == "" {
				until = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", s.Name, s.Action, s.CronExpression, s.Active, until)
		}
		return w.Flush()
	},
}

var scheduleDescribeCmd = &cobra.Command{
	Use:   "describe <name>",
	Short: "Show one schedule in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}

		record, err := app.store.GetSchedule(ctx, args[0])
		if err != nil {
			return err
		}

		writeScheduleDetails(cmd.OutOrStdout(), record)
		return nil
	},
}

func writeScheduleDetails(w io.Writer, record *scheduler.ScheduleRecord) {
	fmt.Fprintf(w, "Name:       %s\n", record.Name)
	if record.Type != "" {
		fmt.Fprintf(w, "Type:       %s\n", record.Type)
	}
	fmt.Fprintf(w, "Action:     %s\n", record.Action)
	fmt.Fprintf(w, "Active:     %t\n", record.Active)
	fmt.Fprintf(w, "Cron:       %s\n", record.CronExpression)
	if record.Until != "" {
		fmt.Fprintf(w, "Until:      %s\n", record.Until)
	}
	if !record.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created:    %s\n", record.CreatedAt.Format(time.RFC3339))
	}
	if !record.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:    %s\n", record.UpdatedAt.Format(time.RFC3339))
	}
}

var scheduleDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}

		if err := app.store.DeleteSchedule(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Schedule %q deleted\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleCreateCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleDescribeCmd)
	scheduleCmd.AddCommand(scheduleDeleteCmd)

	scheduleCreateCmd.Flags().StringVar(&scheduleName, "name", "", "Schedule name (matched against instance tags)")
	scheduleCreateCmd.Flags().StringVar(&scheduleAction, "action", "", "Action to apply: start or stop")
	scheduleCreateCmd.Flags().StringVar(&scheduleCron, "cron", "", "Five-field cron rule, e.g. \"0 22 * * *\"")
	scheduleCreateCmd.Flags().StringVar(&scheduleUntil, "until", "", "Last day the schedule fires (YYYY-MM-DD)")
	scheduleCreateCmd.Flags().StringVar(&scheduleType, "type", "", "Free-form schedule category")
	scheduleCreateCmd.Flags().BoolVar(&scheduleOff, "inactive", false, "Create the schedule disabled")
	scheduleCreateCmd.MarkFlagRequired("name")
	scheduleCreateCmd.MarkFlagRequired("action")
	scheduleCreateCmd.MarkFlagRequired("cron")
}
