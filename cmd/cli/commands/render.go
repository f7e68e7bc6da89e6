package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alcyonehq/alcyone/internal/job"
)

func init() {
	renderCmd.Flags().StringP(flagJob, "j", "", "Path to the job file (YAML)")
	_ = renderCmd.MarkFlagRequired(flagJob)
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the sbatch submission script for a job file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := manifestForCmd(cmd)
		if err != nil {
			return err
		}

		script, err := job.New(m.Params()).Script()
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), script)
		return err
	},
}

// GetRenderCmd returns the render command
func GetRenderCmd() *cobra.Command {
	return renderCmd
}
