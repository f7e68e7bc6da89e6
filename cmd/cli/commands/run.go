package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alcyonehq/alcyone/internal/job"
	"github.com/alcyonehq/alcyone/internal/logger"
	"github.com/alcyonehq/alcyone/internal/remote"
)

const flagShowLog = "show-log"

func init() {
	runCmd.Flags().StringP(flagJob, "j", "", "Path to the job file (YAML)")
	_ = runCmd.MarkFlagRequired(flagJob)
	runCmd.Flags().StringP(flagOutput, "o", "", "Write the output artifact to this file instead of stdout")
	runCmd.Flags().Bool(flagShowLog, false, "Print the scheduler log on stderr after the run")
	addRemoteFlags(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one job to completion and retrieve its output",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := manifestForCmd(cmd)
		if err != nil {
			return err
		}

		j := job.New(m.Params())
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

		runner := job.NewRunner(transport)
		artifact, runErr := runner.Run(cmd.Context(), j)

		// The scheduler log is readable for failed runs too, as long as the
		// job made it past submission.
		if showLog, _ := cmd.Flags().GetBool(flagShowLog); showLog && j.SchedulerJobID != "" {
			if logData, err := runner.FetchLog(cmd.Context(), j); err != nil {
				logger.Warnf("cannot fetch scheduler log: %v", err)
			} else {
				_, _ = cmd.ErrOrStderr().Write(logData)
			}
		}

		if runErr != nil {
			return fmt.Errorf("job %s failed in state %s: %w", j.ID, j.State, runErr)
		}

		logger.Infof("job %s completed as batch job %s (%d bytes)", j.ID, j.SchedulerJobID, len(artifact))
		return writeOutput(cmd, artifact)
	},
}

// GetRunCmd returns the run command
func GetRunCmd() *cobra.Command {
	return runCmd
}
