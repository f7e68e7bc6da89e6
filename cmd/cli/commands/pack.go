package commands

import (
	"github.com/spf13/cobra"

	"github.com/alcyonehq/alcyone/internal/job"
	"github.com/alcyonehq/alcyone/internal/task"
)

func init() {
	packCmd.Flags().StringP(flagJob, "j", "", "Path to the job file (YAML)")
	_ = packCmd.MarkFlagRequired(flagJob)
	packCmd.Flags().StringP(flagOutput, "o", "", "Write the payload to this file instead of stdout")
}

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Package the task payload without contacting the cluster",
	Long: `pack resolves the task source and appends the entry-point trailer,
printing exactly what run would upload as the input script. Useful for
inspecting the payload before spending cluster time on it.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := manifestForCmd(cmd)
		if err != nil {
			return err
		}

		j := job.New(m.Params())
		payload, err := task.Package(j.Task, j.RemoteOutputPath())
		if err != nil {
			return err
		}
		return writeOutput(cmd, []byte(payload))
	},
}

// GetPackCmd returns the pack command
func GetPackCmd() *cobra.Command {
	return packCmd
}
