// Package task defines the payload contract for remote computations: a
// self-contained script with a named, zero-argument entry point, validated
// locally before any network operation.
package task

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// DefaultExt is the payload file extension used when a definition does not set one.
const DefaultExt = "py"

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Definition references a computation to run remotely. Exactly one of Path
// and Source must be set; Entrypoint names the top-level subroutine the
// packaged payload will invoke.
type Definition struct {
	Path       string `yaml:"path,omitempty" json:"path,omitempty"`
	Source     string `yaml:"source,omitempty" json:"source,omitempty"`
	Entrypoint string `yaml:"entrypoint" json:"entrypoint"`
	Ext        string `yaml:"ext,omitempty" json:"ext,omitempty"`
}

// PackagingError reports a definition that cannot be reduced to a
// self-contained payload. It is fatal: the job is never submitted.
type PackagingError struct {
	Reason string
}

func (e *PackagingError) Error() string {
	return "packaging: " + e.Reason
}

func packagingErrorf(format string, args ...interface{}) *PackagingError {
	return &PackagingError{Reason: fmt.Sprintf(format, args...)}
}

// Extension returns the payload file extension for the definition.
func (d Definition) Extension() string {
	if d.Ext == "" {
		return DefaultExt
	}
	return strings.TrimPrefix(d.Ext, ".")
}

// resolve returns the definition's source text, reading Path when the
// source is not embedded.
func (d Definition) resolve() (string, error) {
	switch {
	case d.Path == "" && d.Source == "":
		return "", packagingErrorf("definition must set either path or source")
	case d.Path != "" && d.Source != "":
		return "", packagingErrorf("definition must set only one of path and source")
	case d.Source != "":
		return d.Source, nil
	}

	data, err := os.ReadFile(d.Path)
	if err != nil {
		return "", packagingErrorf("cannot read task script %s: %v", d.Path, err)
	}
	return string(data), nil
}

// validateSource checks that the source begins with a top-level,
// zero-argument definition of the entry point.
func (d Definition) validateSource(source string) error {
	if !identifierRe.MatchString(d.Entrypoint) {
		return packagingErrorf("entrypoint %q is not a valid identifier", d.Entrypoint)
	}

	first := firstNonBlankLine(source)
	if first == "" {
		return packagingErrorf("task source is empty")
	}
	if !strings.HasPrefix(first, "def ") {
		return packagingErrorf("task source does not begin with a top-level definition")
	}

	noArgs := regexp.MustCompile(`^def\s+` + regexp.QuoteMeta(d.Entrypoint) + `\s*\(\s*\)\s*:`)
	if noArgs.MatchString(first) {
		return nil
	}

	named := regexp.MustCompile(`^def\s+` + regexp.QuoteMeta(d.Entrypoint) + `\s*\(`)
	if named.MatchString(first) {
		return packagingErrorf("entrypoint %q must take no arguments", d.Entrypoint)
	}
	return packagingErrorf("task source does not define entrypoint %q at the top level", d.Entrypoint)
}

func firstNonBlankLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}
