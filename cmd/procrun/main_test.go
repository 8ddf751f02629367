package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildEnv(t *testing.T) {
	t.Setenv("PROCRUN_CLI_TEST", "inherited")

	if got := buildEnv(nil, nil, false); got != nil {
		t.Errorf("no flags: env = %v, want nil (inherit)", got)
	}

	base := map[string]string{"FROM": "config"}
	if got := buildEnv(base, nil, false); got["FROM"] != "config" || len(got) != 1 {
		t.Errorf("config only: env = %v, want config env", got)
	}

	got := buildEnv(nil, []string{"A=1", "B=x=y"}, false)
	if got["A"] != "1" || got["B"] != "x=y" {
		t.Errorf("pairs: env = %v, want A=1 B=x=y", got)
	}
	if got["PROCRUN_CLI_TEST"] != "inherited" {
		t.Errorf("pairs: env = %v, want inherited variables kept", got)
	}

	got = buildEnv(base, []string{"A=1"}, true)
	if len(got) != 1 || got["A"] != "1" {
		t.Errorf("clear: env = %v, want only A=1", got)
	}

	if got := buildEnv(nil, nil, true); got == nil || len(got) != 0 {
		t.Errorf("clear without pairs: env = %#v, want empty non-nil", got)
	}
}

func TestEnvFlags_Set(t *testing.T) {
	var e envFlags
	if err := e.Set("K=V"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := e.Set("novalue"); err == nil {
		t.Error("expected error for missing =")
	}
	if e.String() != "K=V" {
		t.Errorf("String() = %q, want %q", e.String(), "K=V")
	}
}

func TestExitCode(t *testing.T) {
	tests := map[int]int{0: 0, 3: 3, 9: 9, 127: 127, 255: 255, 256: 1, -1: 1}
	for in, want := range tests {
		if got := exitCode(in); got != want {
			t.Errorf("exitCode(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestRunMain(t *testing.T) {
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	code, err := runMain([]string{"/bin/sh", "-c", "printf out; printf err >&2; exit 5"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("runMain: %v", err)
	}
	if code != 5 {
		t.Errorf("code = %d, want 5", code)
	}
	if stdout.String() != "out" {
		t.Errorf("stdout = %q, want %q", stdout.String(), "out")
	}
	if stderr.String() != "err" {
		t.Errorf("stderr = %q, want %q", stderr.String(), "err")
	}
}

func TestRunMain_JoinAndJSON(t *testing.T) {
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	code, err := runMain([]string{"-join", "-json", "--", "/bin/sh", "-c", "printf a; printf b >&2"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("runMain: %v", err)
	}
	if code != 0 {
		t.Errorf("code = %d, want 0", code)
	}

	var res struct {
		RunID  string `json:"run_id"`
		Stdout string `json:"stdout"`
		Stderr string `json:"stderr"`
		Status struct {
			Success bool `json:"success"`
		} `json:"status"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		t.Fatalf("decoding %q: %v", stdout.String(), err)
	}
	if res.Stdout != "ab" || res.Stderr != "" || !res.Status.Success || res.RunID == "" {
		t.Errorf("result = %+v", res)
	}
}

func TestRunMain_ConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "work"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := "dir: work\nenv:\n  GREETING: hi\n  PATH: /usr/bin:/bin\n"
	if err := os.WriteFile(filepath.Join(dir, ".procrun"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	var stdout, stderr bytes.Buffer
	_, err := runMain([]string{"/bin/sh", "-c", `printf '%s ' "$GREETING"; basename "$(pwd)"`}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("runMain: %v", err)
	}
	if got := stdout.String(); got != "hi work\n" {
		t.Errorf("stdout = %q, want %q", got, "hi work\n")
	}
}

func TestRunMain_SpawnFailure(t *testing.T) {
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	if _, err := runMain([]string{"/nonexistent/binary-xyz-123"}, &stdout, &stderr); err == nil {
		t.Fatal("expected error")
	}
}

func TestRunMain_MissingCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code, err := runMain(nil, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error")
	}
	if code != 2 {
		t.Errorf("code = %d, want 2", code)
	}
}
