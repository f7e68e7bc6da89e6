// Package job models one batch computation's lifecycle: package the task,
// stage it on the login node, submit it, watch accounting output, retrieve
// the artifact. A Job is single-use; terminal states are final.
package job

import (
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/alcyonehq/alcyone/internal/slurm"
	"github.com/alcyonehq/alcyone/internal/task"
)

// DefaultSettleDelay is how long to wait after the scheduler reports
// completion before fetching the artifact, giving the remote filesystem
// time to flush.
const DefaultSettleDelay = 10 * time.Second

// newID generates job identifiers. Swappable in tests.
var newID = uuid.NewString

// Params describe a job to create. Zero-valued timings and resource fields
// pick up defaults; GPUs passes through as supplied, so zero means no
// accelerator request.
type Params struct {
	Task         task.Definition
	User         string
	Host         string
	RemoteDir    string
	LogDir       string
	Interpreter  string
	Resources    slurm.BatchParams
	Timeout      time.Duration
	PollInterval time.Duration
	SettleDelay  time.Duration
}

// Job is one unit of computation moving through the pipeline. The ID is
// assigned at creation and never changes; every file name the job touches
// derives from it, so concurrent jobs never collide. SchedulerJobID is set
// exactly once, at submission.
type Job struct {
	ID             string            `json:"id"`
	Task           task.Definition   `json:"task"`
	User           string            `json:"user"`
	Host           string            `json:"host"`
	RemoteDir      string            `json:"remote_dir"`
	LogDir         string            `json:"log_dir"`
	Interpreter    string            `json:"interpreter"`
	Resources      slurm.BatchParams `json:"resources"`
	Timeout        time.Duration     `json:"timeout"`
	PollInterval   time.Duration     `json:"poll_interval"`
	SettleDelay    time.Duration     `json:"settle_delay"`
	SchedulerJobID string            `json:"scheduler_job_id,omitempty"`
	State          State             `json:"state"`
	Error          string            `json:"error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// New builds a Job in the Created state with a fresh identifier and
// defaulted timings.
func New(p Params) *Job {
	j := &Job{
		ID:           newID(),
		Task:         p.Task,
		User:         p.User,
		Host:         p.Host,
		RemoteDir:    p.RemoteDir,
		LogDir:       p.LogDir,
		Interpreter:  p.Interpreter,
		Resources:    p.Resources,
		Timeout:      p.Timeout,
		PollInterval: p.PollInterval,
		SettleDelay:  p.SettleDelay,
		State:        StateCreated,
		CreatedAt:    time.Now().UTC(),
	}

	if j.RemoteDir == "" {
		j.RemoteDir = "~"
	}
	if j.LogDir == "" && j.User != "" {
		j.LogDir = path.Join("/home", j.User)
	}
	if j.Interpreter == "" {
		j.Interpreter = slurm.DefaultInterpreter
	}
	if j.Resources.Walltime == "" {
		j.Resources.Walltime = slurm.DefaultWalltime
	}
	if j.Resources.TasksPerNode == 0 {
		j.Resources.TasksPerNode = slurm.DefaultTasksPerNode
	}
	if j.Resources.Memory == "" {
		j.Resources.Memory = slurm.DefaultMemory
	}
	if j.Timeout == 0 {
		j.Timeout = slurm.DefaultPollTimeout
	}
	if j.PollInterval == 0 {
		j.PollInterval = slurm.DefaultPollInterval
	}
	if j.SettleDelay == 0 {
		j.SettleDelay = DefaultSettleDelay
	}
	return j
}

// BatchJobName is the scheduler-visible job name.
func (j *Job) BatchJobName() string {
	return "alcyone-" + j.ID
}

// InputName is the payload file name, unique to this job.
func (j *Job) InputName() string {
	return fmt.Sprintf("alcyone_in_%s.%s", j.ID, j.Task.Extension())
}

// OutputName is the artifact file name the payload trailer writes to.
func (j *Job) OutputName() string {
	return fmt.Sprintf("alcyone_out_%s.dat", j.ID)
}

// SubmitName is the submission script file name.
func (j *Job) SubmitName() string {
	return j.InputName() + ".submit"
}

// Remote paths are POSIX regardless of the local platform.

// RemoteInputPath is where the payload lands on the login node.
func (j *Job) RemoteInputPath() string {
	return path.Join(j.RemoteDir, j.InputName())
}

// RemoteOutputPath is where the payload trailer writes the artifact.
func (j *Job) RemoteOutputPath() string {
	return path.Join(j.RemoteDir, j.OutputName())
}

// RemoteSubmitPath is where the submission script lands on the login node.
func (j *Job) RemoteSubmitPath() string {
	return path.Join(j.RemoteDir, j.SubmitName())
}

// RemoteLogPath is the scheduler's stdout log for the job. Only meaningful
// once SchedulerJobID is set.
func (j *Job) RemoteLogPath() string {
	return path.Join(j.LogDir, fmt.Sprintf("slurm-%s.out", j.SchedulerJobID))
}

// batchParams assembles the fully-bound template fields for this job.
func (j *Job) batchParams() slurm.BatchParams {
	p := j.Resources
	p.JobName = j.BatchJobName()
	p.Interpreter = j.Interpreter
	p.ScriptPath = j.RemoteInputPath()
	return p
}

// Script renders the job's submission script.
func (j *Job) Script() (string, error) {
	return slurm.Script(j.batchParams())
}
