package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alcyonehq/alcyone/internal/logger"
	"github.com/alcyonehq/alcyone/internal/remote"
	"github.com/alcyonehq/alcyone/internal/slurm"
)

func init() {
	statusCmd.Flags().StringP(flagJob, "j", "", "Path to the job file (YAML) for remote settings")
	statusCmd.Flags().StringP(flagSchedulerID, "i", "", "Scheduler job ID to query")
	_ = statusCmd.MarkFlagRequired(flagSchedulerID)
	addRemoteFlags(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query accounting output for a submitted job",
	Long: `status runs one accounting query on the login node and prints the
job's authoritative row. The job may take a few scheduler cycles to become
visible after submission; rerun until it appears.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := remoteManifestForCmd(cmd)
		if err != nil {
			return err
		}
		id, _ := cmd.Flags().GetString(flagSchedulerID)

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

		// Timeout equal to the interval bounds the poller to a single query.
		poller := slurm.NewPoller(transport, slurm.DefaultPollInterval, slurm.DefaultPollInterval)
		row, err := poller.Wait(cmd.Context(), id)
		if err != nil {
			var timedOut *slurm.PollTimeoutError
			if errors.As(err, &timedOut) {
				return fmt.Errorf("job %s is not visible in accounting output yet", id)
			}
			return err
		}
		return printJSON(cmd, row)
	},
}

// GetStatusCmd returns the status command
func GetStatusCmd() *cobra.Command {
	return statusCmd
}
