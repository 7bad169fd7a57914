package python

import (
	"strings"
)

// RedirectorEnvVar names the interpreter to execute when scripts are
// installed without a concrete target interpreter.
const RedirectorEnvVar = "WHEELHOUSE_PYTHON"

// Shebang formats a script shebang line for the given interpreter executable
// and switch argument. args may be empty.
func Shebang(pythonExe, args string) string {
	if args == "" {
		return "#!" + pythonExe
	}
	return "#!" + pythonExe + " " + args
}

// ScriptArgs computes the interpreter switch argument for a rewritten console
// script. templateSwitches carries the single-letter switches found on the
// script's original shebang; hermetic additionally forces the "s" and "E"
// isolation switches. Returns "" when no switches apply.
func ScriptArgs(templateSwitches string, hermetic bool) string {
	letters := templateSwitches
	if hermetic {
		for _, c := range "sE" {
			if !strings.ContainsRune(letters, c) {
				letters += string(c)
			}
		}
	}
	if letters == "" {
		return ""
	}
	return "-" + letters
}

// RedirectorShebang builds the two-line shebang used when no target
// interpreter is known. The first line hands the script to sh; the second is
// a valid statement in both sh and Python: sh execs $WHEELHOUSE_PYTHON on the
// script, while Python evaluates it as a constant string expression and
// carries on with the rest of the file.
func RedirectorShebang(args string) string {
	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	sb.WriteString(`"exec" "$` + RedirectorEnvVar + `"`)
	if args != "" {
		sb.WriteString(` "` + args + `"`)
	}
	sb.WriteString(` "$0" "$@"`)
	return sb.String()
}
