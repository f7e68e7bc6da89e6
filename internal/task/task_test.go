package task

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = "def compute():\n    return b'ok'\n"

func TestPackageFromSource(t *testing.T) {
	def := Definition{
		Source:     sampleSource,
		Entrypoint: "compute",
	}

	payload, err := Package(def, "/remote/alcyone_out_1.dat")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(payload, sampleSource), "payload must begin with the task source")
	assert.True(t, strings.HasSuffix(payload, "    file.write(result)\n"))
	assert.Contains(t, payload, "result = compute()")
	assert.Contains(t, payload, "with open('/remote/alcyone_out_1.dat', 'wb') as file:")
}

func TestPackageFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "task.py")
	require.NoError(t, os.WriteFile(scriptPath, []byte(sampleSource), 0o644))

	payload, err := Package(Definition{Path: scriptPath, Entrypoint: "compute"}, "/remote/out.dat")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(payload, sampleSource))
	assert.Contains(t, payload, "result = compute()")
}

func TestPackageAppendsNewlineBeforeTrailer(t *testing.T) {
	payload, err := Package(Definition{
		Source:     "def compute():\n    return b''",
		Entrypoint: "compute",
	}, "/remote/out.dat")
	require.NoError(t, err)
	assert.Contains(t, payload, "return b''\n\nresult = compute()")
}

func TestPackageValidation(t *testing.T) {
	tests := []struct {
		name   string
		def    Definition
		reason string
	}{
		{
			name:   "neither path nor source",
			def:    Definition{Entrypoint: "compute"},
			reason: "either path or source",
		},
		{
			name: "both path and source",
			def: Definition{
				Path:       "task.py",
				Source:     sampleSource,
				Entrypoint: "compute",
			},
			reason: "only one of path and source",
		},
		{
			name:   "missing file",
			def:    Definition{Path: "/definitely/not/here.py", Entrypoint: "compute"},
			reason: "cannot read task script",
		},
		{
			name:   "invalid entrypoint identifier",
			def:    Definition{Source: sampleSource, Entrypoint: "3compute"},
			reason: "not a valid identifier",
		},
		{
			name:   "empty source",
			def:    Definition{Source: "\n\n  \n", Entrypoint: "compute"},
			reason: "task source is empty",
		},
		{
			name:   "first line is not a definition",
			def:    Definition{Source: "import os\ndef compute():\n    return b''\n", Entrypoint: "compute"},
			reason: "does not begin with a top-level definition",
		},
		{
			name:   "wrong entrypoint name",
			def:    Definition{Source: "def other():\n    return b''\n", Entrypoint: "compute"},
			reason: `does not define entrypoint "compute"`,
		},
		{
			name:   "entrypoint takes arguments",
			def:    Definition{Source: "def compute(x):\n    return b''\n", Entrypoint: "compute"},
			reason: `"compute" must take no arguments`,
		},
		{
			name:   "indented definition",
			def:    Definition{Source: "  def compute():\n    return b''\n", Entrypoint: "compute"},
			reason: "does not begin with a top-level definition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Package(tt.def, "/remote/out.dat")
			require.Error(t, err)

			var pkgErr *PackagingError
			require.True(t, errors.As(err, &pkgErr), "expected a PackagingError, got %T", err)
			assert.Contains(t, pkgErr.Error(), tt.reason)
		})
	}
}

func TestExtensionDefaults(t *testing.T) {
	assert.Equal(t, "py", Definition{}.Extension())
	assert.Equal(t, "jl", Definition{Ext: "jl"}.Extension())
	assert.Equal(t, "py", Definition{Ext: ".py"}.Extension())
}
