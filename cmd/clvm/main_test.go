package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/clvm/config"
)

// ---------------------------------------------------------------------------
// run / brun / hash
// ---------------------------------------------------------------------------

func runCmd(t *testing.T, cmd func([]string, *bytes.Buffer) int, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	code := cmd(append([]string{"-C", t.TempDir()}, args...), &out)
	return code, strings.TrimSpace(out.String())
}

func run(args []string, out *bytes.Buffer) int  { return cmdRun(args, out) }
func brun(args []string, out *bytes.Buffer) int { return cmdBrun(args, out) }
func hash(args []string, out *bytes.Buffer) int { return cmdHash(args, out) }

func TestCmdRun(t *testing.T) {
	code, out := runCmd(t, run, "-c", "(c (q . 10) 1)", "(2 3)")
	if code != 0 {
		t.Fatalf("exit code = %d, output %q", code, out)
	}
	if out != "cost = 114\n(10 2 3)" {
		t.Errorf("output = %q", out)
	}
}

func TestCmdRun_Raise(t *testing.T) {
	code, out := runCmd(t, run, "(x (q . 10))")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if out != "FAIL: clvm raise (10)" {
		t.Errorf("output = %q", out)
	}
}

func TestCmdRun_CostCeiling(t *testing.T) {
	code, out := runCmd(t, run, "-max-cost", "113", "(c (q . 10) 1)", "(2 3)")
	if code != 1 || !strings.HasPrefix(out, "FAIL: cost exceeded") {
		t.Errorf("exit code = %d, output %q", code, out)
	}
}

func TestCmdRun_FailureCost(t *testing.T) {
	code, out := runCmd(t, run, "-c", "-max-cost", "113", "(c (q . 10) 1)", "(2 3)")
	if code != 1 || !strings.HasPrefix(out, "cost = 113\nFAIL: cost exceeded") {
		t.Errorf("exit code = %d, output %q", code, out)
	}

	// the quoted argument is charged before x raises
	code, out = runCmd(t, run, "-c", "(x (q . 10))")
	if code != 1 || out != "cost = 20\nFAIL: clvm raise (10)" {
		t.Errorf("exit code = %d, output %q", code, out)
	}
}

func TestCmdRun_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.clvm")
	if err := os.WriteFile(path, []byte("; first of env\n(f 1)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out := runCmd(t, run, "-f", path, "(7 8)")
	if code != 0 || out != "7" {
		t.Errorf("exit code = %d, output %q", code, out)
	}
}

func TestCmdBrun(t *testing.T) {
	code, out := runCmd(t, brun, "ff05ff0180", "0xff0a14")
	if code != 0 || out != "10" {
		t.Errorf("exit code = %d, output %q", code, out)
	}

	code, _ = runCmd(t, brun, "ff05")
	if code != 1 {
		t.Errorf("truncated program: exit code = %d, want 1", code)
	}
}

func TestCmdHash(t *testing.T) {
	const nilHash = "4bf5122f344554c53bde2ebb8cd2b7e3d1600ad631c385a5d7cce23c7785459a"
	code, out := runCmd(t, hash, "()")
	if code != 0 || out != nilHash {
		t.Errorf("hash () = %q (exit %d)", out, code)
	}
	code, out = runCmd(t, hash, "-x", "80")
	if code != 0 || out != nilHash {
		t.Errorf("hash -x 80 = %q (exit %d)", out, code)
	}
}

func TestCmdRun_ConfigOperators(t *testing.T) {
	dir := t.TempDir()
	toml := "[operators]\nc = 99\n"
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	code := cmdRun([]string{"-C", dir, "(c (q . 10) (q . 20))"}, &out)
	if code != 0 || strings.TrimSpace(out.String()) != "(10 . 20)" {
		t.Errorf("exit code = %d, output %q", code, out.String())
	}
}

// ---------------------------------------------------------------------------
// REPL session
// ---------------------------------------------------------------------------

func newTestSession(t *testing.T) *session {
	t.Helper()
	ev, err := newEvaluator(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	return &session{ev: ev}
}

func TestSession_EvalWithEnv(t *testing.T) {
	s := newTestSession(t)
	var out bytes.Buffer

	if s.command(":env (10 20)", &out) {
		t.Fatal(":env should not quit")
	}
	s.command(":cost", &out)
	out.Reset()

	s.eval("(f (r 1))", &out)
	if got := out.String(); got != "cost = 104\n20\n" {
		t.Errorf("output = %q", got)
	}
}

func TestSession_Commands(t *testing.T) {
	s := newTestSession(t)
	var out bytes.Buffer

	s.command(":env (1", &out)
	if !strings.Contains(out.String(), "unclosed (") || s.envText != "" {
		t.Errorf("bad :env: output %q, env %q", out.String(), s.envText)
	}

	out.Reset()
	s.command(":hash ()", &out)
	if !strings.HasPrefix(out.String(), "4bf5122f") {
		t.Errorf(":hash output = %q", out.String())
	}

	out.Reset()
	s.command(":bogus", &out)
	if !strings.Contains(out.String(), "unknown command :bogus") {
		t.Errorf(":bogus output = %q", out.String())
	}

	if !s.command(":quit", &out) {
		t.Error(":quit should quit")
	}
}

func TestNeedsMore(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"(c 1", true},
		{"(c 1\n 2)", false},
		{")", false},
		{"5", false},
	}
	for _, tc := range tests {
		if got := needsMore(tc.src); got != tc.want {
			t.Errorf("needsMore(%q) = %v, want %v", tc.src, got, tc.want)
		}
	}
}
