package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gopalvishwakrma/dojialert/internal/workflow"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Inspect the CI workflow definition",
}

var workflowValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check the workflow's schedule, entry point and secret wiring",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := workflow.DefaultPath
		if len(args) == 1 {
			path = args[0]
		}

		wf, err := workflow.ParseFile(path)
		if err != nil {
			return err
		}
		if err := workflow.Validate(wf, workflow.DefaultExpectations()); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		next, err := workflow.NextFire(wf.Triggers.Schedules[0], time.Now())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: ok\n", path)
		fmt.Fprintf(out, "  schedule: %s (next %s)\n", wf.Triggers.Schedules[0], next.Format(time.RFC3339))
		fmt.Fprintf(out, "  jobs:     %v\n", wf.JobNames())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workflowCmd)
	workflowCmd.AddCommand(workflowValidateCmd)
}
