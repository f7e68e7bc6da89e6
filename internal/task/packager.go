package task

import (
	"fmt"
	"strings"
)

// Package resolves and validates the definition, then returns the payload
// text: the task source followed by a trailer that invokes the entry point
// and writes its return value, as bytes, to outputPath on the remote side.
func Package(d Definition, outputPath string) (string, error) {
	source, err := d.resolve()
	if err != nil {
		return "", err
	}
	if err := d.validateSource(source); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(trailer(d.Entrypoint, outputPath))
	return b.String(), nil
}

// trailer emits the stanza appended to every payload. The remote
// interpreter runs it after the task source, so the entry point's return
// value must be a byte string.
func trailer(entrypoint, outputPath string) string {
	return fmt.Sprintf("\nresult = %s()\nwith open('%s', 'wb') as file:\n    file.write(result)\n", entrypoint, outputPath)
}
