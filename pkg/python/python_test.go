package python_test

import (
	"path/filepath"
	"testing"

	"github.com/glorpus-work/wheelhouse/pkg/python"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInterpreter(t *testing.T, version string) *python.Interpreter {
	t.Helper()
	interp, err := python.NewInterpreter(
		"/venv/bin/python3", version, true, "/venv",
		map[string]string{
			python.SchemePurelib: "/venv/lib/python3.11/site-packages",
			python.SchemeScripts: "/venv/bin",
		})
	require.NoError(t, err)
	return interp
}

func TestNewInterpreterInvalidVersion(t *testing.T) {
	_, err := python.NewInterpreter("/usr/bin/python3", "not-a-version", false, "/usr", nil)
	require.Error(t, err)
}

func TestVersionTag(t *testing.T) {
	assert.Equal(t, "python3.11", newTestInterpreter(t, "3.11.4").VersionTag())
	assert.Equal(t, "python3.9", newTestInterpreter(t, "3.9").VersionTag())
}

func TestSchemePath(t *testing.T) {
	interp := newTestInterpreter(t, "3.11.4")

	path, err := interp.SchemePath(python.SchemeScripts)
	require.NoError(t, err)
	assert.Equal(t, "/venv/bin", path)

	_, err = interp.SchemePath(python.SchemeInclude)
	require.Error(t, err)
}

func TestSiteHeadersPath(t *testing.T) {
	interp := newTestInterpreter(t, "3.11.4")
	assert.Equal(t,
		filepath.FromSlash("/venv/include/site/python3.11/example"),
		interp.SiteHeadersPath("example"))
}

func TestShebang(t *testing.T) {
	assert.Equal(t, "#!/venv/bin/python3", python.Shebang("/venv/bin/python3", ""))
	assert.Equal(t, "#!/venv/bin/python3 -sE", python.Shebang("/venv/bin/python3", "-sE"))
}

func TestScriptArgs(t *testing.T) {
	assert.Equal(t, "", python.ScriptArgs("", false))
	assert.Equal(t, "-sE", python.ScriptArgs("", true))
	assert.Equal(t, "-x", python.ScriptArgs("x", false))
	// Switches already present are not duplicated.
	assert.Equal(t, "-sE", python.ScriptArgs("s", true))
	assert.Equal(t, "-xsE", python.ScriptArgs("x", true))
}

func TestRedirectorShebang(t *testing.T) {
	assert.Equal(t,
		"#!/bin/sh\n\"exec\" \"$WHEELHOUSE_PYTHON\" \"-sE\" \"$0\" \"$@\"",
		python.RedirectorShebang("-sE"))
	assert.Equal(t,
		"#!/bin/sh\n\"exec\" \"$WHEELHOUSE_PYTHON\" \"$0\" \"$@\"",
		python.RedirectorShebang(""))
}
