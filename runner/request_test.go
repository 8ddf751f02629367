package runner

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		launcher string
		req      Request
		wantPath string
		wantArgv []string
	}{
		{
			name:     "absolute path",
			launcher: DefaultLauncher,
			req:      Request{Command: "/bin/echo", Args: []string{"a", "b"}},
			wantPath: "/bin/echo",
			wantArgv: []string{"/bin/echo", "a", "b"},
		},
		{
			name:     "relative path",
			launcher: DefaultLauncher,
			req:      Request{Command: "./tool"},
			wantPath: "./tool",
			wantArgv: []string{"./tool"},
		},
		{
			name:     "bare name goes through launcher",
			launcher: DefaultLauncher,
			req:      Request{Command: "git", Args: []string{"status"}},
			wantPath: DefaultLauncher,
			wantArgv: []string{DefaultLauncher, "git", "status"},
		},
		{
			name:     "custom launcher",
			launcher: "/opt/bin/env",
			req:      Request{Command: "ls"},
			wantPath: "/opt/bin/env",
			wantArgv: []string{"/opt/bin/env", "ls"},
		},
		{
			name:     "backslashes stripped from path and args",
			launcher: DefaultLauncher,
			req:      Request{Command: `/bin/my\ tool`, Args: []string{`a\b`, `\\`}},
			wantPath: "/bin/my tool",
			wantArgv: []string{"/bin/my tool", "ab", ""},
		},
		{
			name:     "backslashes stripped from bare name",
			launcher: DefaultLauncher,
			req:      Request{Command: `gi\t`},
			wantPath: DefaultLauncher,
			wantArgv: []string{DefaultLauncher, "git"},
		},
		{
			name:     "no args",
			launcher: DefaultLauncher,
			req:      Request{Command: "/bin/true", Args: nil},
			wantPath: "/bin/true",
			wantArgv: []string{"/bin/true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, argv := resolve(tt.launcher, tt.req)
			if path != tt.wantPath {
				t.Errorf("path = %q, want %q", path, tt.wantPath)
			}
			if !reflect.DeepEqual(argv, tt.wantArgv) {
				t.Errorf("argv = %q, want %q", argv, tt.wantArgv)
			}
		})
	}
}

func TestResolve_RelativePathWithDir(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	path, argv := resolve(DefaultLauncher, Request{Command: "./tool", Dir: "/elsewhere"})
	if want := filepath.Join(cwd, "tool"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if argv[0] != "./tool" {
		t.Errorf("argv[0] = %q, want %q", argv[0], "./tool")
	}
}

func TestIsLiteralPath(t *testing.T) {
	tests := map[string]bool{
		"/bin/sh":   true,
		"./run":     true,
		"../run":    true,
		".hidden":   true,
		"sh":        false,
		"bin/sh":    false,
		"":          false,
		"~/bin/foo": false,
	}
	for in, want := range tests {
		if got := IsLiteralPath(in); got != want {
			t.Errorf("IsLiteralPath(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStripBackslashes(t *testing.T) {
	tests := map[string]string{
		`a\b`:       "ab",
		`\\`:        "",
		`no escape`: "no escape",
		`C:\dir\x`:  "C:dirx",
		"":          "",
	}
	for in, want := range tests {
		if got := StripBackslashes(in); got != want {
			t.Errorf("StripBackslashes(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnviron(t *testing.T) {
	if got := environ(nil); got != nil {
		t.Errorf("environ(nil) = %q, want nil", got)
	}
	if got := environ(map[string]string{}); got == nil || len(got) != 0 {
		t.Errorf("environ(empty) = %#v, want empty non-nil", got)
	}
	got := environ(map[string]string{"B": "2", "A": "1", "EMPTY": ""})
	want := []string{"A=1", "B=2", "EMPTY="}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("environ = %q, want %q", got, want)
	}
}
