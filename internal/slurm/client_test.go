package slurm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records uploads and commands, answering sbatch with a
// canned response.
type fakeTransport struct {
	uploads     [][2]string
	uploadErrOn int // 1-based call index that fails, 0 for never
	uploadErr   error
	execOut     string
	execErr     error
	commands    []string
}

func (f *fakeTransport) Upload(_ context.Context, local, remote string) error {
	f.uploads = append(f.uploads, [2]string{local, remote})
	if f.uploadErrOn != 0 && len(f.uploads) == f.uploadErrOn {
		return f.uploadErr
	}
	return nil
}

func (f *fakeTransport) Download(context.Context, string, string) error { return nil }

func (f *fakeTransport) Execute(_ context.Context, command string) (string, error) {
	f.commands = append(f.commands, command)
	return f.execOut, f.execErr
}

func (f *fakeTransport) Close() error { return nil }

func stageInput() StageInput {
	return StageInput{
		ScriptLocalPath:  "/tmp/stage/alcyone_in_u1.py",
		ScriptRemotePath: "/scratch/alcyone_in_u1.py",
		SubmitLocalPath:  "/tmp/stage/alcyone_in_u1.py.submit",
		SubmitRemotePath: "/scratch/alcyone_in_u1.py.submit",
	}
}

func TestClientStage(t *testing.T) {
	transport := &fakeTransport{}
	client := NewClient(transport)

	require.NoError(t, client.Stage(context.Background(), stageInput()))

	require.Len(t, transport.uploads, 2, "payload then submission script")
	assert.Equal(t, [2]string{"/tmp/stage/alcyone_in_u1.py", "/scratch/alcyone_in_u1.py"}, transport.uploads[0])
	assert.Equal(t, [2]string{"/tmp/stage/alcyone_in_u1.py.submit", "/scratch/alcyone_in_u1.py.submit"}, transport.uploads[1])
	assert.Empty(t, transport.commands)
}

func TestClientStageUploadFails(t *testing.T) {
	bad := errors.New("scp: permission denied")

	transport := &fakeTransport{uploadErrOn: 1, uploadErr: bad}
	err := NewClient(transport).Stage(context.Background(), stageInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload payload script")
	assert.ErrorIs(t, err, bad)
	assert.Len(t, transport.uploads, 1, "staging stops at the first failure")

	transport = &fakeTransport{uploadErrOn: 2, uploadErr: bad}
	err = NewClient(transport).Stage(context.Background(), stageInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload submission script")
}

func TestClientSubmit(t *testing.T) {
	transport := &fakeTransport{execOut: "Submitted batch job 4242\n"}

	id, err := NewClient(transport).Submit(context.Background(), "/scratch/alcyone_in_u1.py.submit")
	require.NoError(t, err)
	assert.Equal(t, "4242", id)
	assert.Equal(t, []string{"sbatch /scratch/alcyone_in_u1.py.submit"}, transport.commands)
}

func TestClientSubmitCommandFails(t *testing.T) {
	execErr := errors.New("exit status 1")
	transport := &fakeTransport{
		execOut: "sbatch: error: invalid partition specified",
		execErr: execErr,
	}

	_, err := NewClient(transport).Submit(context.Background(), "/scratch/job.submit")
	require.Error(t, err)

	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr), "expected a SubmissionError, got %T", err)
	assert.Contains(t, subErr.Output, "invalid partition")
	assert.ErrorIs(t, err, execErr)
}

func TestClientSubmitNoAcknowledgment(t *testing.T) {
	transport := &fakeTransport{execOut: "welcome to the login node\n"}

	_, err := NewClient(transport).Submit(context.Background(), "/scratch/job.submit")
	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, "welcome to the login node\n", subErr.Output)
}
