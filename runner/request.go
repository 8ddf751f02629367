package runner

import (
	"path/filepath"
	"sort"
	"strings"
)

// DefaultLauncher performs PATH lookup for bare command names.
const DefaultLauncher = "/usr/bin/env"

// Request describes a single command execution.
type Request struct {
	// Command is either a literal path (leading "." or "/") or a bare
	// program name resolved through the launcher.
	Command string
	// Args are passed positionally after the command.
	Args []string
	// Env replaces the inherited environment when non-nil. An empty,
	// non-nil map starts the child with no environment at all.
	Env map[string]string
	// Dir is the child's working directory. Empty means the caller's.
	Dir string
	// JoinPipes routes stderr into the stdout capture.
	JoinPipes bool
}

// IsLiteralPath reports whether command is invoked directly rather than
// through the launcher.
func IsLiteralPath(command string) bool {
	return strings.HasPrefix(command, ".") || strings.HasPrefix(command, "/")
}

// StripBackslashes removes every backslash from s.
func StripBackslashes(s string) string {
	return strings.ReplaceAll(s, `\`, "")
}

// resolve returns the executable path and the full argument vector
// (argv[0] included) for req. Literal paths run directly; anything else is
// handed to launcher, which does the PATH lookup.
func resolve(launcher string, req Request) (string, []string) {
	var path string
	var argv []string
	if IsLiteralPath(req.Command) {
		path = StripBackslashes(req.Command)
		argv = make([]string, 0, len(req.Args)+1)
		argv = append(argv, path)
	} else {
		path = launcher
		argv = make([]string, 0, len(req.Args)+2)
		argv = append(argv, launcher, StripBackslashes(req.Command))
	}
	for _, a := range req.Args {
		argv = append(argv, StripBackslashes(a))
	}

	// A relative literal path names a file relative to the caller, not to
	// the child's working directory.
	if req.Dir != "" && !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return path, argv
}

// environ flattens env into KEY=VALUE pairs in key order. A nil map yields
// nil, which makes the child inherit the caller's environment.
func environ(env map[string]string) []string {
	if env == nil {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(env))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
