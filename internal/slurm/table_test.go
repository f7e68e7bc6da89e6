package slurm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sacctFixture mirrors the default sacct layout: right-aligned header over a
// dash-run separator, a parent row, and a batch sub-step row.
const sacctFixture = `       JobID    JobName  Partition    Account  AllocCPUS      State ExitCode
------------ ---------- ---------- ---------- ---------- ---------- --------
77           alcyone-77        gpu    default          4  COMPLETED      0:0
77.batch          batch               default          4  COMPLETED      0:0
`

func TestParseTable(t *testing.T) {
	rows, err := ParseTable(sacctFixture)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	parent := rows[0]
	assert.Equal(t, "77", parent.JobID())
	assert.Equal(t, "alcyone-77", parent["JobName"])
	assert.Equal(t, "gpu", parent["Partition"])
	assert.Equal(t, "default", parent["Account"])
	assert.Equal(t, "4", parent["AllocCPUS"])
	assert.Equal(t, "COMPLETED", parent.State())
	assert.Equal(t, "0:0", parent["ExitCode"])

	step := rows[1]
	assert.Equal(t, "77.batch", step.JobID())
	assert.Equal(t, "batch", step["JobName"])
	assert.Equal(t, "", step["Partition"], "sub-steps carry no partition")
	assert.Equal(t, "COMPLETED", step.State())
}

func TestParseTableRoundTripsPaddedInput(t *testing.T) {
	// sacct pads every line to full width with trailing spaces.
	padded := strings.ReplaceAll(sacctFixture, "\n", " \n")

	want, err := ParseTable(sacctFixture)
	require.NoError(t, err)
	got, err := ParseTable(padded)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseTableSkipsBlankLines(t *testing.T) {
	rows, err := ParseTable(sacctFixture + "\n   \n")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestParseTableHeaderOnly(t *testing.T) {
	rows, err := ParseTable("       JobID      State\n------------ ----------\n")
	require.NoError(t, err)
	assert.Empty(t, rows, "a job not yet in accounting yields no rows, not an error")
}

func TestParseTableMalformed(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{
			name:   "empty input",
			input:  "",
			reason: "missing header or separator",
		},
		{
			name:   "header only",
			input:  "JobID State",
			reason: "missing header or separator",
		},
		{
			name:   "separator is not dash runs",
			input:  "JobID State\n===== =====\n77 COMPLETED",
			reason: "not a dash run",
		},
		{
			name:   "blank separator",
			input:  "JobID State\n   \n",
			reason: "empty separator line",
		},
		{
			name:   "row wider than schema",
			input:  "A    B\n---- ---\naaaaaaaaaa",
			reason: "row wider than schema",
		},
		{
			name:   "row shorter than final column",
			input:  "A    B\n---- ---\nab",
			reason: "row too short for schema",
		},
		{
			name:   "unnamed column",
			input:  "A     \n---- ---\nx    y",
			reason: "has no name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable(tt.input)
			require.Error(t, err)

			var malformed *MalformedTableError
			require.True(t, errors.As(err, &malformed), "expected a MalformedTableError, got %T", err)
			assert.Contains(t, malformed.Error(), tt.reason)
		})
	}
}
