package install

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/glorpus-work/wheelhouse/pkg/fsutil"
	"github.com/glorpus-work/wheelhouse/pkg/python"
)

// Installers recognize the bare "python" placeholder shebang, optionally
// followed by a single block of single-letter interpreter switches.
// See: https://www.python.org/dev/peps/pep-0427/#recommended-installer-features
var shebangTemplate = regexp.MustCompile(`^pythonw?( -[a-zA-Z]+)?$`)

// scriptProcessor rewrites template-script shebangs to target a concrete
// interpreter, or the sh redirector when none is known.
type scriptProcessor struct {
	hermetic     bool
	targetPython string
}

// classify marks path executable and, if its first line is a placeholder
// shebang, returns ok with the template's switch letters.
func (p scriptProcessor) classify(path string) (ok bool, switches string, err error) {
	if err := fsutil.ChmodPlusX(path); err != nil {
		return false, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return false, "", err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	magic := make([]byte, 2)
	if _, err := io.ReadFull(reader, magic); err != nil || !bytes.Equal(magic, []byte("#!")) {
		return false, "", nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, "", nil
	}
	command := trimEOL(line)
	if !shebangTemplate.MatchString(command) {
		return false, "", nil
	}
	_, switches, _ = cutSwitches(command)
	return true, switches, nil
}

// process rewrites path's shebang line in place, preserving the template's
// switches and leaving the rest of the file byte for byte unchanged. The file
// is rewritten as a fresh copy so hardlinked originals stay pristine.
func (p scriptProcessor) process(path, switches string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rest := []byte{}
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		rest = data[idx+1:]
	}

	args := python.ScriptArgs(switches, p.hermetic)
	var shebang string
	if p.targetPython != "" {
		shebang = python.Shebang(p.targetPython, args)
	} else {
		shebang = python.RedirectorShebang(args)
	}

	var buf bytes.Buffer
	buf.WriteString(shebang)
	buf.WriteByte('\n')
	buf.Write(rest)

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to replace script %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), fsutil.FileModeExec)
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// cutSwitches splits a template shebang command into its interpreter name and
// switch letters.
func cutSwitches(command string) (name, switches string, found bool) {
	return strings.Cut(command, " -")
}
