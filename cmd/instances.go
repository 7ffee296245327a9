package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var instancesForTag string

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "List schedulable instances across regions",
	Long: `Lists instances in every configured region that pass the state and
name filters. With --for-tag only instances enrolled in that schedule
are shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}

		byRegion, err := app.compute.ListInstances(ctx, instancesForTag)
		if err != nil {
			// Show the healthy regions; the failures are already logged.
			app.logger.Warn("instance listing incomplete", "error", err)
		}

		total := 0
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "REGION\tINSTANCE ID\tNAME\tSTATE\tSCHEDULE")
		for _, region := range app.compute.Regions() {
			for _, inst := range byRegion[region] {
				schedule := inst.Schedule
				if schedule == "" {
					schedule = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					region, inst.InstanceID, inst.Name, inst.State, schedule)
				total++
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("\n%d instance(s)\n", total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(instancesCmd)
	instancesCmd.Flags().StringVar(&instancesForTag, "for-tag", "", "Only instances enrolled in this schedule")
}
