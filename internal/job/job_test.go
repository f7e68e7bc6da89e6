package job

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alcyonehq/alcyone/internal/slurm"
	"github.com/alcyonehq/alcyone/internal/task"
)

// withStubID pins the job identifier generator for one test.
func withStubID(t *testing.T, id string) {
	t.Helper()
	orig := newID
	newID = func() string { return id }
	t.Cleanup(func() { newID = orig })
}

func sampleParams() Params {
	return Params{
		Task: task.Definition{
			Source:     "def compute():\n    return b'ok'\n",
			Entrypoint: "compute",
		},
		User: "alger",
		Host: "miasma",
	}
}

func TestNewDefaults(t *testing.T) {
	j := New(sampleParams())

	assert.NotEmpty(t, j.ID)
	assert.Equal(t, StateCreated, j.State)
	assert.Equal(t, "~", j.RemoteDir)
	assert.Equal(t, "/home/alger", j.LogDir)
	assert.Equal(t, slurm.DefaultInterpreter, j.Interpreter)
	assert.Equal(t, slurm.DefaultWalltime, j.Resources.Walltime)
	assert.Equal(t, slurm.DefaultTasksPerNode, j.Resources.TasksPerNode)
	assert.Equal(t, slurm.DefaultMemory, j.Resources.Memory)
	assert.Equal(t, 0, j.Resources.GPUs, "GPUs pass through as supplied")
	assert.Equal(t, slurm.DefaultPollTimeout, j.Timeout)
	assert.Equal(t, slurm.DefaultPollInterval, j.PollInterval)
	assert.Equal(t, DefaultSettleDelay, j.SettleDelay)
	assert.Empty(t, j.SchedulerJobID)
}

func TestNewOverrides(t *testing.T) {
	p := sampleParams()
	p.RemoteDir = "/scratch/alger"
	p.LogDir = "/var/log/slurm"
	p.Interpreter = "/opt/conda/bin/python3"
	p.Resources = slurm.BatchParams{
		Walltime:     "02:00:00",
		TasksPerNode: 8,
		GPUs:         2,
		Memory:       "32g",
		Setup:        []string{"module load cuda"},
	}
	p.Timeout = 10 * time.Minute
	p.PollInterval = 15 * time.Second
	p.SettleDelay = 30 * time.Second

	j := New(p)
	assert.Equal(t, "/scratch/alger", j.RemoteDir)
	assert.Equal(t, "/var/log/slurm", j.LogDir)
	assert.Equal(t, "/opt/conda/bin/python3", j.Interpreter)
	assert.Equal(t, "02:00:00", j.Resources.Walltime)
	assert.Equal(t, 8, j.Resources.TasksPerNode)
	assert.Equal(t, 2, j.Resources.GPUs)
	assert.Equal(t, "32g", j.Resources.Memory)
	assert.Equal(t, 10*time.Minute, j.Timeout)
	assert.Equal(t, 15*time.Second, j.PollInterval)
	assert.Equal(t, 30*time.Second, j.SettleDelay)
}

func TestDerivedNames(t *testing.T) {
	withStubID(t, "0f1e2d3c")

	p := sampleParams()
	p.RemoteDir = "/scratch/alger"
	j := New(p)

	assert.Equal(t, "alcyone-0f1e2d3c", j.BatchJobName())
	assert.Equal(t, "alcyone_in_0f1e2d3c.py", j.InputName())
	assert.Equal(t, "alcyone_out_0f1e2d3c.dat", j.OutputName())
	assert.Equal(t, "alcyone_in_0f1e2d3c.py.submit", j.SubmitName())
	assert.Equal(t, "/scratch/alger/alcyone_in_0f1e2d3c.py", j.RemoteInputPath())
	assert.Equal(t, "/scratch/alger/alcyone_out_0f1e2d3c.dat", j.RemoteOutputPath())
	assert.Equal(t, "/scratch/alger/alcyone_in_0f1e2d3c.py.submit", j.RemoteSubmitPath())

	j.SchedulerJobID = "77"
	assert.Equal(t, "/home/alger/slurm-77.out", j.RemoteLogPath())
}

func TestDerivedNamesRespectExtension(t *testing.T) {
	withStubID(t, "aa11")

	p := sampleParams()
	p.Task.Ext = "jl"
	j := New(p)
	assert.Equal(t, "alcyone_in_aa11.jl", j.InputName())
	assert.Equal(t, "alcyone_in_aa11.jl.submit", j.SubmitName())
	assert.Equal(t, "alcyone_out_aa11.dat", j.OutputName(), "artifact extension is fixed")
}

func TestHomeRelativeRemoteDir(t *testing.T) {
	withStubID(t, "bb22")

	j := New(sampleParams())
	assert.Equal(t, "~/alcyone_in_bb22.py", j.RemoteInputPath())
}

func TestIdentifiersAreUnique(t *testing.T) {
	const n = 10000

	ids := make(map[string]struct{}, n)
	inputs := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		j := New(sampleParams())
		ids[j.ID] = struct{}{}
		inputs[j.InputName()] = struct{}{}
	}
	assert.Len(t, ids, n, "every job gets a distinct identifier")
	assert.Len(t, inputs, n, "derived file names never collide")
}

func TestBatchParamsBinding(t *testing.T) {
	withStubID(t, "cc33")

	p := sampleParams()
	p.RemoteDir = "/scratch"
	p.Interpreter = "/usr/bin/python3"
	j := New(p)

	bound := j.batchParams()
	assert.Equal(t, "alcyone-cc33", bound.JobName)
	assert.Equal(t, "/usr/bin/python3", bound.Interpreter)
	assert.Equal(t, "/scratch/alcyone_in_cc33.py", bound.ScriptPath)

	script, err := slurm.Script(bound)
	require.NoError(t, err)
	assert.Contains(t, script, "#SBATCH --job-name=alcyone-cc33")
	assert.Contains(t, script, "/usr/bin/python3 -u /scratch/alcyone_in_cc33.py")
}

func TestStateStringRoundTrip(t *testing.T) {
	states := []State{
		StateUnknown, StateCreated, StatePackaged, StateUploaded,
		StateSubmitted, StatePolling, StateCompleted, StatePollTimedOut,
		StateSubmissionFailed, StateRetrievalFailed, StateFailed,
	}
	for _, s := range states {
		t.Run(s.String(), func(t *testing.T) {
			parsed, err := ParseState(s.String())
			require.NoError(t, err)
			assert.Equal(t, s, parsed)
		})
	}

	_, err := ParseState("definitely-not-a-state")
	assert.Error(t, err)
}

func TestStateJSON(t *testing.T) {
	data, err := json.Marshal(StatePollTimedOut)
	require.NoError(t, err)
	assert.Equal(t, `"poll_timed_out"`, string(data))

	var s State
	require.NoError(t, json.Unmarshal([]byte(`"completed"`), &s))
	assert.Equal(t, StateCompleted, s)

	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &s))
}

func TestStateTerminality(t *testing.T) {
	tests := []struct {
		state    State
		terminal bool
		failure  bool
	}{
		{StateCreated, false, false},
		{StatePackaged, false, false},
		{StateUploaded, false, false},
		{StateSubmitted, false, false},
		{StatePolling, false, false},
		{StateCompleted, true, false},
		{StatePollTimedOut, true, true},
		{StateSubmissionFailed, true, true},
		{StateRetrievalFailed, true, true},
		{StateFailed, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
			assert.Equal(t, tt.failure, tt.state.IsFailure())
		})
	}
}

func TestJobJSONUsesStateNames(t *testing.T) {
	withStubID(t, "dd44")

	j := New(sampleParams())
	j.State = StatePolling
	data, err := json.Marshal(j)
	require.NoError(t, err)
	assert.Contains(t, string(data), fmt.Sprintf(`"id":%q`, "dd44"))
	assert.Contains(t, string(data), `"state":"polling"`)
}
