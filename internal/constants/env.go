// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvRemoteUser is the login-node account name
	EnvRemoteUser = "ALCYONE_REMOTE_USER"

	// EnvRemoteHost is the login-node hostname or address
	EnvRemoteHost = "ALCYONE_REMOTE_HOST"

	// EnvRemoteDir is the remote working directory for job files
	EnvRemoteDir = "ALCYONE_REMOTE_DIR"

	// EnvLogDir is the remote directory holding scheduler stdout logs
	EnvLogDir = "ALCYONE_LOG_DIR"

	// EnvInterpreter is the remote interpreter path used to run packaged scripts
	EnvInterpreter = "ALCYONE_INTERPRETER"

	// EnvSSHKeyPath is the path to the SSH private key used by the transports
	EnvSSHKeyPath = "ALCYONE_SSH_KEY"

	// EnvTransport selects the transport implementation: "command" or "ssh"
	EnvTransport = "ALCYONE_TRANSPORT"

	// EnvListenAddr is the API server listen address
	EnvListenAddr = "ALCYONE_LISTEN_ADDR"

	// EnvServerAddress is the API server address the CLI talks to
	EnvServerAddress = "ALCYONE_SERVER_ADDRESS"

	// EnvHistory enables the submission history store when set to "true"
	EnvHistory = "ALCYONE_HISTORY"

	// EnvPollInterval overrides the default delay between status queries
	EnvPollInterval = "ALCYONE_POLL_INTERVAL"

	// EnvPollTimeout overrides the default polling timeout
	EnvPollTimeout = "ALCYONE_POLL_TIMEOUT"

	// EnvSettleDelay overrides the default wait before output retrieval
	EnvSettleDelay = "ALCYONE_SETTLE_DELAY"
)

// Database environment variable names, used when the history store is enabled
const (
	// EnvDBHost is the history database host
	EnvDBHost = "DB_HOST"
	// EnvDBPort is the history database port
	EnvDBPort = "DB_PORT"
	// EnvDBUser is the history database user
	EnvDBUser = "DB_USER"
	// EnvDBPassword is the history database password
	EnvDBPassword = "DB_PASSWORD"
	// EnvDBName is the history database name
	EnvDBName = "DB_NAME"
)
