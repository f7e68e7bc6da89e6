package commands

import (
	"github.com/spf13/cobra"

	"github.com/alcyonehq/alcyone/internal/job"
	"github.com/alcyonehq/alcyone/internal/logger"
	"github.com/alcyonehq/alcyone/internal/remote"
)

func init() {
	fetchCmd.Flags().StringP(flagJob, "j", "", "Path to the job file (YAML) for remote settings")
	fetchCmd.Flags().StringP(flagSchedulerID, "i", "", "Scheduler job ID whose log to fetch")
	_ = fetchCmd.MarkFlagRequired(flagSchedulerID)
	fetchCmd.Flags().StringP(flagOutput, "o", "", "Write the log to this file instead of stdout")
	addRemoteFlags(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the scheduler's stdout log for a submitted job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := remoteManifestForCmd(cmd)
		if err != nil {
			return err
		}
		id, _ := cmd.Flags().GetString(flagSchedulerID)

		j := job.New(m.Params())
		j.SchedulerJobID = id

		kind, topts := m.TransportOptions()
		transport, err := remote.New(kind, topts)
		if err != nil {
			return err
		}
		defer func() {
			if err := transport.Close(); err != nil {
				logger.Warnf("cannot close transport: %v", err)
			}
		}()

		data, err := job.NewRunner(transport).FetchLog(cmd.Context(), j)
		if err != nil {
			return err
		}
		return writeOutput(cmd, data)
	},
}

// GetFetchCmd returns the fetch command
func GetFetchCmd() *cobra.Command {
	return fetchCmd
}
