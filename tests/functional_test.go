package tests

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// Sections of a functional archive that describe the run rather than the
// files it works on.
const (
	argsFile   = "args"
	stdoutFile = "stdout"
	stderrFile = "stderr"
	exitFile   = "exit"
)

// TestFunctional runs each testdata/*.txtar archive through the compiled
// binary: the files are written to a scratch directory, the command line in
// the args section is run there, and stdout, stderr and the exit code are
// compared with the archive's sections.
// This tests the actual binary - what users see.
func TestFunctional(t *testing.T) {
	projectRoot, err := filepath.Abs("..")
	if err != nil {
		t.Fatalf("Failed to get project root: %v", err)
	}

	binaryPath := filepath.Join(t.TempDir(), "expect-test-binary")

	// Always build fresh binary
	t.Log("Building fresh binary...")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/expect")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, output)
	}

	archives, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(archives) == 0 {
		t.Skip("No functional archives found")
	}

	for _, path := range archives {
		name := strings.TrimSuffix(filepath.Base(path), ".txtar")
		t.Run(name, func(t *testing.T) {
			ar, err := txtar.ParseFile(path)
			if err != nil {
				t.Fatal(err)
			}
			runArchive(t, binaryPath, ar)
		})
	}
}

func runArchive(t *testing.T, binaryPath string, ar *txtar.Archive) {
	dir := t.TempDir()
	sections := map[string]string{}
	for _, f := range ar.Files {
		switch f.Name {
		case argsFile, stdoutFile, stderrFile, exitFile:
			sections[f.Name] = string(f.Data)
			continue
		}
		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(target, f.Data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	args := strings.Fields(sections[argsFile])
	if len(args) == 0 {
		t.Fatal("archive has no args section")
	}
	if strings.Contains(string(ar.Comment), "requires: python3") {
		if _, err := exec.LookPath("python3"); err != nil {
			t.Skip("python3 not available")
		}
	}

	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = dir
	// Set test mode environment variable so the binary knows it's running in test mode
	cmd.Env = append(os.Environ(), "EXPECT_TEST_MODE=1")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	code := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("running binary: %v", err)
		}
		code = exitErr.ExitCode()
	}

	wantCode := 0
	if s, ok := sections[exitFile]; ok {
		wantCode, _ = strconv.Atoi(strings.TrimSpace(s))
	}
	if code != wantCode {
		t.Errorf("exit code %d, want %d\nstderr:\n%s", code, wantCode, stderr.String())
	}
	if want, ok := sections[stdoutFile]; ok && stdout.String() != want {
		t.Errorf("stdout mismatch:\n--- want ---\n%s\n--- got ---\n%s", want, stdout.String())
	}
	if want, ok := sections[stderrFile]; ok {
		got := strings.ReplaceAll(stderr.String(), dir+string(filepath.Separator), "")
		if got != want {
			t.Errorf("stderr mismatch:\n--- want ---\n%s\n--- got ---\n%s", want, got)
		}
	}
}
