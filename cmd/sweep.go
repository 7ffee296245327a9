package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a single sweep and exit",
	Long: `Checks every active schedule against the current minute, applies
start/stop actions to tagged instances in all configured regions and
prints the result as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}

		result, err := app.sweeper.Run(ctx)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal sweep result: %w", err)
		}
		fmt.Println(string(out))

		if len(result.Errors) > 0 {
			fmt.Fprintf(os.Stderr, "%d instance action(s) failed\n", len(result.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
