package slurm

import (
	"fmt"
	"regexp"
	"strings"
)

var ackPattern = regexp.MustCompile(`Submitted batch job (\d+)`)

// SubmissionError reports an sbatch invocation whose output carried no job-id
// acknowledgment. Output holds everything the command printed, since the
// cause (auth failure, quota, malformed script) only shows up there.
type SubmissionError struct {
	Output string
	Cause  error
}

func (e *SubmissionError) Error() string {
	msg := fmt.Sprintf("batch submission not acknowledged: %q", strings.TrimSpace(e.Output))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() error { return e.Cause }

// ParseSubmissionAck extracts the scheduler job id from sbatch output.
// Anything without a "Submitted batch job <id>" line is a SubmissionError.
func ParseSubmissionAck(output string) (string, error) {
	m := ackPattern.FindStringSubmatch(output)
	if m == nil {
		return "", &SubmissionError{Output: output}
	}
	return m[1], nil
}
