package job

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alcyonehq/alcyone/internal/remote"
	"github.com/alcyonehq/alcyone/internal/slurm"
	"github.com/alcyonehq/alcyone/internal/task"
)

// Duration is a time.Duration that marshals as scalar strings like "3m"
// or "45s" in both YAML and JSON.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.parse(s)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) parse(s string) error {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// RemoteConfig names the login node and how to reach it.
type RemoteConfig struct {
	User      string `yaml:"user" json:"user"`
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port,omitempty" json:"port,omitempty"`
	RemoteDir string `yaml:"remote_dir,omitempty" json:"remote_dir,omitempty"`
	LogDir    string `yaml:"log_dir,omitempty" json:"log_dir,omitempty"`
	Transport string `yaml:"transport,omitempty" json:"transport,omitempty"`
	KeyPath   string `yaml:"key_path,omitempty" json:"key_path,omitempty"`
}

// Manifest describes one job: the task to run, the login node to run it
// through, and resource and timing overrides. It is the YAML job file the
// CLI reads and the JSON body the API accepts.
type Manifest struct {
	Task         task.Definition   `yaml:"task" json:"task"`
	Remote       RemoteConfig      `yaml:"remote" json:"remote"`
	Interpreter  string            `yaml:"interpreter,omitempty" json:"interpreter,omitempty"`
	Resources    slurm.BatchParams `yaml:"resources" json:"resources"`
	Timeout      Duration          `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	PollInterval Duration          `yaml:"poll_interval,omitempty" json:"poll_interval,omitempty"`
	SettleDelay  Duration          `yaml:"settle_delay,omitempty" json:"settle_delay,omitempty"`
}

// LoadManifest reads a job manifest from a YAML file. A relative task path
// resolves against the manifest's directory. Absent resource fields keep
// their defaults; gpus defaults to one accelerator unless the manifest
// says zero.
func LoadManifest(path string) (*Manifest, error) {
	m, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// ReadManifest reads and parses a job manifest without validating it.
// Callers that layer fallbacks over the file validate afterwards.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	m := &Manifest{
		Resources: slurm.BatchParams{GPUs: slurm.DefaultGPUs},
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Task.Path != "" && !filepath.IsAbs(m.Task.Path) {
		m.Task.Path = filepath.Join(filepath.Dir(path), m.Task.Path)
	}
	return m, nil
}

// Validate checks the fields every job needs before any work starts.
func (m *Manifest) Validate() error {
	var missing []string
	if m.Remote.User == "" {
		missing = append(missing, "remote.user")
	}
	if m.Remote.Host == "" {
		missing = append(missing, "remote.host")
	}
	if m.Task.Entrypoint == "" {
		missing = append(missing, "task.entrypoint")
	}
	if m.Task.Path == "" && m.Task.Source == "" {
		missing = append(missing, "task.path or task.source")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Params converts the manifest into job creation parameters.
func (m *Manifest) Params() Params {
	return Params{
		Task:         m.Task,
		User:         m.Remote.User,
		Host:         m.Remote.Host,
		RemoteDir:    m.Remote.RemoteDir,
		LogDir:       m.Remote.LogDir,
		Interpreter:  m.Interpreter,
		Resources:    m.Resources,
		Timeout:      time.Duration(m.Timeout),
		PollInterval: time.Duration(m.PollInterval),
		SettleDelay:  time.Duration(m.SettleDelay),
	}
}

// TransportOptions converts the manifest into a transport kind and its
// dial options.
func (m *Manifest) TransportOptions() (string, remote.Options) {
	return m.Remote.Transport, remote.Options{
		User:    m.Remote.User,
		Host:    m.Remote.Host,
		Port:    m.Remote.Port,
		KeyPath: m.Remote.KeyPath,
	}
}
