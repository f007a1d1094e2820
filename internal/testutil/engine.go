package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

// StubEngine is an executable shell script standing in for the Python
// interpreter. It answers --version like Python does; any other invocation
// ("-m <module> <hectares>") is recorded and then runs the script body,
// where "$3" holds the hectares argument.
type StubEngine struct {
	// Path is the script to configure as the interpreter.
	Path string

	calls string
}

// NewStubEngine writes a stub interpreter running body into a temp dir.
func NewStubEngine(t testing.TB, body string) *StubEngine {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub engines are shell scripts")
	}

	dir := t.TempDir()
	e := &StubEngine{
		Path:  filepath.Join(dir, "python3"),
		calls: filepath.Join(dir, "calls.log"),
	}

	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"--version\" ]; then echo 'Python 3.11.4'; exit 0; fi\n" +
		"printf '%s\\n' \"$*\" >> '" + e.calls + "'\n" +
		body + "\n"
	if err := os.WriteFile(e.Path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub engine: %v", err)
	}
	return e
}

// NewJSONStub returns a stub engine that prints output and exits with code.
func NewJSONStub(t testing.TB, output string, code int) *StubEngine {
	t.Helper()
	body := "cat <<'JSON'\n" + output + "\nJSON\nexit " + strconv.Itoa(code)
	return NewStubEngine(t, body)
}

// Calls returns the argument lines of every non-probe invocation.
func (e *StubEngine) Calls(t testing.TB) []string {
	t.Helper()
	data, err := os.ReadFile(e.calls)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read stub calls: %v", err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}
