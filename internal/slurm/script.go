package slurm

import (
	"fmt"
	"strings"
	"text/template"
)

// Default resource requests applied when a job does not override them.
const (
	DefaultWalltime     = "10:00:00"
	DefaultTasksPerNode = 4
	DefaultGPUs         = 1
	DefaultMemory       = "10g"
	DefaultInterpreter  = "python3"
)

// scriptTemplate is the batch submission script shape. The gres request is
// emitted only when GPUs are requested; setup directives (module loads,
// exports) go between the SBATCH block and the interpreter invocation.
const scriptTemplate = `#!/bin/sh
# SLURM directives
#
#SBATCH --job-name={{.JobName}}
#SBATCH --time={{.Walltime}}
#SBATCH --tasks-per-node={{.TasksPerNode}}
{{- if gt .GPUs 0}}
#SBATCH --gres=gpu:{{.GPUs}}
{{- end}}
#SBATCH --mem={{.Memory}}

{{range .Setup}}{{.}}
{{end}}{{if .Setup}}
{{end}}{{.Interpreter}} -u {{.ScriptPath}}
`

var scriptTmpl = template.Must(template.New("batch").Parse(scriptTemplate))

// BatchParams carries every field the submission script template consumes.
// All fields are required. GPUs is a supplied value, not a default: zero
// means no accelerator request.
type BatchParams struct {
	JobName      string   `yaml:"-" json:"job_name"`
	Walltime     string   `yaml:"walltime,omitempty" json:"walltime"`
	TasksPerNode int      `yaml:"tasks_per_node,omitempty" json:"tasks_per_node"`
	GPUs         int      `yaml:"gpus" json:"gpus"`
	Memory       string   `yaml:"mem,omitempty" json:"mem"`
	Setup        []string `yaml:"setup,omitempty" json:"setup,omitempty"`
	Interpreter  string   `yaml:"-" json:"interpreter"`
	ScriptPath   string   `yaml:"-" json:"script_path"`
}

// TemplateError reports submission-script fields that are missing or out of
// range. Every offending field is listed so the caller can fix them in one
// pass.
type TemplateError struct {
	Missing []string
}

func (e *TemplateError) Error() string {
	return "render batch script: missing or invalid fields: " + strings.Join(e.Missing, ", ")
}

// Validate checks that every template field is supplied.
func (p BatchParams) Validate() error {
	var missing []string
	if p.JobName == "" {
		missing = append(missing, "JobName")
	}
	if p.Walltime == "" {
		missing = append(missing, "Walltime")
	}
	if p.TasksPerNode < 1 {
		missing = append(missing, "TasksPerNode")
	}
	if p.GPUs < 0 {
		missing = append(missing, "GPUs")
	}
	if p.Memory == "" {
		missing = append(missing, "Memory")
	}
	if p.Interpreter == "" {
		missing = append(missing, "Interpreter")
	}
	if p.ScriptPath == "" {
		missing = append(missing, "ScriptPath")
	}
	if len(missing) > 0 {
		return &TemplateError{Missing: missing}
	}
	return nil
}

// Script renders the batch submission script for p. Rendering is
// deterministic: identical params always produce identical bytes.
func Script(p BatchParams) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	var b strings.Builder
	if err := scriptTmpl.Execute(&b, p); err != nil {
		return "", fmt.Errorf("render batch script: %w", err)
	}
	return b.String(), nil
}
