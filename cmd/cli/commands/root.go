package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alcyonehq/alcyone/config"
	"github.com/alcyonehq/alcyone/internal/api/v1/client"
	routes "github.com/alcyonehq/alcyone/internal/api/v1/routes"
	"github.com/alcyonehq/alcyone/internal/constants"
	"github.com/alcyonehq/alcyone/internal/job"
	"github.com/alcyonehq/alcyone/internal/logger"
)

// flag names shared across commands
const (
	flagJob           = "job"
	flagOutput        = "output"
	flagSchedulerID   = "id"
	flagUser          = "user"
	flagHost          = "host"
	flagTransport     = "transport"
	flagKeyPath       = "key"
	flagServerAddress = "server-address"
)

var (
	// apiClient is the shared API client instance; the jobs subcommands use it.
	apiClient client.Client
	// serverAddress holds the target API server address. Flag parsing sets this.
	serverAddress string
)

// initClient initializes the API client
func initClient() error {
	var err error
	opts := client.DefaultOptions()
	opts.BaseURL = serverAddress

	apiClient, err = client.NewClient(opts)
	return err
}

func init() {
	// Set a basic default for the flag. PersistentPreRunE handles the env var override.
	RootCmd.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s", routes.DefaultBaseURL, "Address of the alcyone API server (env: ALCYONE_SERVER_ADDRESS)")

	RootCmd.AddCommand(GetRunCmd())
	RootCmd.AddCommand(GetPackCmd())
	RootCmd.AddCommand(GetRenderCmd())
	RootCmd.AddCommand(GetStatusCmd())
	RootCmd.AddCommand(GetFetchCmd())
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "alcyone",
	Short: "alcyone - run one computation on a SLURM cluster and bring back its output",
	Long: `alcyone packages a task, stages it on a cluster login node, submits it
to SLURM, waits for it to finish, and retrieves the output artifact.
Jobs are described by a YAML job file; remote settings fall back to
ALCYONE_* environment variables.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		config.LoadEnv()
		logger.InitializeAndConfigure()

		// Check if the server address flag was explicitly set by the user.
		if !cmd.Flags().Changed(flagServerAddress) {
			if envAddr := os.Getenv(constants.EnvServerAddress); envAddr != "" {
				serverAddress = envAddr
			}
		}

		// serverAddress now has the precedence: flag > env var > default.
		if serverAddress == "" {
			return fmt.Errorf("server address cannot be empty")
		}
		return initClient()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

// manifestForCmd loads the --job manifest and layers overrides on it.
// Precedence: explicit flags, then manifest values, then environment.
func manifestForCmd(cmd *cobra.Command) (*job.Manifest, error) {
	path, _ := cmd.Flags().GetString(flagJob)
	m, err := job.ReadManifest(path)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, m)
	applyEnv(m)
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// remoteManifestForCmd is manifestForCmd for commands that only contact the
// login node and need no task definition. The --job flag is optional.
func remoteManifestForCmd(cmd *cobra.Command) (*job.Manifest, error) {
	m := &job.Manifest{}
	if path, _ := cmd.Flags().GetString(flagJob); path != "" {
		var err error
		m, err = job.ReadManifest(path)
		if err != nil {
			return nil, err
		}
	}
	applyFlags(cmd, m)
	applyEnv(m)
	if m.Remote.User == "" || m.Remote.Host == "" {
		return nil, fmt.Errorf("remote user and host are required (job file, flags, or environment)")
	}
	return m, nil
}

// applyFlags copies explicit command-line overrides onto the manifest.
// Flags a command does not define read back as empty and change nothing.
func applyFlags(cmd *cobra.Command, m *job.Manifest) {
	if v, _ := cmd.Flags().GetString(flagUser); v != "" {
		m.Remote.User = v
	}
	if v, _ := cmd.Flags().GetString(flagHost); v != "" {
		m.Remote.Host = v
	}
	if v, _ := cmd.Flags().GetString(flagTransport); v != "" {
		m.Remote.Transport = v
	}
	if v, _ := cmd.Flags().GetString(flagKeyPath); v != "" {
		m.Remote.KeyPath = v
	}
}

// applyEnv fills manifest fields that are still unset from the environment.
func applyEnv(m *job.Manifest) {
	if m.Remote.User == "" {
		m.Remote.User = os.Getenv(constants.EnvRemoteUser)
	}
	if m.Remote.Host == "" {
		m.Remote.Host = os.Getenv(constants.EnvRemoteHost)
	}
	if m.Remote.RemoteDir == "" {
		m.Remote.RemoteDir = os.Getenv(constants.EnvRemoteDir)
	}
	if m.Remote.LogDir == "" {
		m.Remote.LogDir = os.Getenv(constants.EnvLogDir)
	}
	if m.Remote.Transport == "" {
		m.Remote.Transport = os.Getenv(constants.EnvTransport)
	}
	if m.Remote.KeyPath == "" {
		m.Remote.KeyPath = os.Getenv(constants.EnvSSHKeyPath)
	}
	if m.Interpreter == "" {
		m.Interpreter = os.Getenv(constants.EnvInterpreter)
	}
	if m.Timeout == 0 {
		m.Timeout = job.Duration(config.GetEnvDuration(constants.EnvPollTimeout, 0))
	}
	if m.PollInterval == 0 {
		m.PollInterval = job.Duration(config.GetEnvDuration(constants.EnvPollInterval, 0))
	}
	if m.SettleDelay == 0 {
		m.SettleDelay = job.Duration(config.GetEnvDuration(constants.EnvSettleDelay, 0))
	}
}

// addRemoteFlags registers the login-node override flags.
func addRemoteFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(flagUser, "u", "", "Login-node user (overrides manifest)")
	cmd.Flags().StringP(flagHost, "H", "", "Login-node host (overrides manifest)")
	cmd.Flags().String(flagTransport, "", `Transport implementation: "command" or "ssh"`)
	cmd.Flags().String(flagKeyPath, "", "SSH identity file")
}

// writeOutput writes data to --output when set, to stdout otherwise.
func writeOutput(cmd *cobra.Command, data []byte) error {
	outPath, _ := cmd.Flags().GetString(flagOutput)
	if outPath == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	return nil
}

// printJSON pretty-prints v on the command's output stream.
func printJSON(cmd *cobra.Command, v interface{}) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
	return err
}
