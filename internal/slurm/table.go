package slurm

import (
	"fmt"
	"strings"
)

// StatusRow is one parsed line of accounting output, keyed by column name.
type StatusRow map[string]string

// JobID returns the row's job identifier, which may carry a sub-step
// suffix such as "77.batch".
func (r StatusRow) JobID() string { return r["JobID"] }

// State returns the row's scheduler state, e.g. "COMPLETED".
func (r StatusRow) State() string { return r["State"] }

// MalformedTableError reports accounting output that does not follow the
// fixed-width header/separator/rows layout.
type MalformedTableError struct {
	Reason string
}

func (e *MalformedTableError) Error() string {
	return "malformed accounting table: " + e.Reason
}

// ParseTable parses fixed-width tabular output in the shape sacct emits: a
// header line, a separator line of dash runs, then data rows. Column widths
// are recovered from the separator, each dash run plus the single space that
// follows it. Fields are trimmed; blank lines are skipped. Rows that do not
// fit the recovered schema are an error, never silently truncated.
func ParseTable(output string) ([]StatusRow, error) {
	lines := strings.Split(output, "\n")
	if len(lines) < 2 {
		return nil, &MalformedTableError{Reason: "missing header or separator line"}
	}

	widths, err := parseWidths(lines[1])
	if err != nil {
		return nil, err
	}
	total := 0
	for _, w := range widths {
		total += w
	}

	columns, err := splitRow(lines[0], widths, total)
	if err != nil {
		return nil, err
	}
	for i, col := range columns {
		if col == "" {
			return nil, &MalformedTableError{Reason: fmt.Sprintf("column %d has no name", i+1)}
		}
	}

	var rows []StatusRow
	for _, line := range lines[2:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields, err := splitRow(line, widths, total)
		if err != nil {
			return nil, err
		}
		row := make(StatusRow, len(columns))
		for i, col := range columns {
			row[col] = fields[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseWidths recovers column widths from the separator line. Each token
// must be a run of dashes; its width is the run length plus one for the
// column gap.
func parseWidths(separator string) ([]int, error) {
	trimmed := strings.TrimRight(separator, " ")
	if trimmed == "" {
		return nil, &MalformedTableError{Reason: "empty separator line"}
	}
	tokens := strings.Split(trimmed, " ")
	widths := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" || strings.Count(tok, "-") != len(tok) {
			return nil, &MalformedTableError{Reason: fmt.Sprintf("separator token %q is not a dash run", tok)}
		}
		widths = append(widths, len(tok)+1)
	}
	return widths, nil
}

// splitRow slices one line at the cumulative column widths. The line may
// end short of the final column's full width (trailing padding is often
// dropped) but must at least reach the final column's start, and must not
// run past the schema's total width.
func splitRow(line string, widths []int, total int) ([]string, error) {
	if len(line) > total {
		return nil, &MalformedTableError{Reason: fmt.Sprintf("row wider than schema (%d > %d columns): %q", len(line), total, line)}
	}
	lastStart := total - widths[len(widths)-1]
	if len(line) < lastStart {
		return nil, &MalformedTableError{Reason: fmt.Sprintf("row too short for schema: %q", line)}
	}

	fields := make([]string, 0, len(widths))
	pos := 0
	for _, w := range widths {
		end := pos + w
		if end > len(line) {
			end = len(line)
		}
		fields = append(fields, strings.TrimSpace(line[pos:end]))
		pos += w
	}
	return fields, nil
}
