package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

const flagState = "state"

func init() {
	jobsCmd.AddCommand(submitJobCmd)
	jobsCmd.AddCommand(listJobsCmd)
	jobsCmd.AddCommand(getJobCmd)
	jobsCmd.AddCommand(jobOutputCmd)

	// Add flags
	submitJobCmd.Flags().StringP(flagJob, "j", "", "Path to the job file (YAML)")
	_ = submitJobCmd.MarkFlagRequired(flagJob)

	listJobsCmd.Flags().String(flagState, "", "Filter jobs by lifecycle state")

	getJobCmd.Flags().StringP(flagSchedulerID, "i", "", "Job ID to fetch")
	_ = getJobCmd.MarkFlagRequired(flagSchedulerID)

	jobOutputCmd.Flags().StringP(flagSchedulerID, "i", "", "Job ID whose artifact to download")
	_ = jobOutputCmd.MarkFlagRequired(flagSchedulerID)
	jobOutputCmd.Flags().StringP(flagOutput, "o", "", "Write the artifact to this file instead of stdout")
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Work with jobs on a running alcyone server",
}

var submitJobCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a job file to the server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := manifestForCmd(cmd)
		if err != nil {
			return err
		}

		view, err := apiClient.SubmitJob(context.Background(), m)
		if err != nil {
			return fmt.Errorf("error submitting job: %w", err)
		}
		return printJSON(cmd, view)
	},
}

var listJobsCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs the server knows about",
	RunE: func(cmd *cobra.Command, _ []string) error {
		state, _ := cmd.Flags().GetString(flagState)

		views, err := apiClient.ListJobs(context.Background(), state)
		if err != nil {
			return fmt.Errorf("error fetching jobs: %w", err)
		}
		return printJSON(cmd, views)
	},
}

var getJobCmd = &cobra.Command{
	Use:   "get",
	Short: "Get a specific job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetString(flagSchedulerID)

		view, err := apiClient.GetJob(context.Background(), jobID)
		if err != nil {
			return fmt.Errorf("error fetching job: %w", err)
		}
		return printJSON(cmd, view)
	},
}

var jobOutputCmd = &cobra.Command{
	Use:   "output",
	Short: "Download a completed job's output artifact",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetString(flagSchedulerID)

		data, err := apiClient.GetJobOutput(context.Background(), jobID)
		if err != nil {
			return fmt.Errorf("error fetching job output: %w", err)
		}
		return writeOutput(cmd, data)
	},
}

// GetJobsCmd returns the jobs command
func GetJobsCmd() *cobra.Command {
	return jobsCmd
}
