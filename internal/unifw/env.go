package unifw

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Env is an immutable snapshot of the build environment Xcode hands to a
// run-script phase. Role resolution and slave environment translation are
// pure functions of this snapshot, which is what makes them testable and
// what makes the master/slave split safe across two separate processes.
type Env map[string]string

// CaptureEnv snapshots the current process environment.
func CaptureEnv() Env {
	env := make(Env)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// Get returns the value for key, or "" when unset.
func (e Env) Get(key string) string {
	return e[key]
}

// Lookup reports whether key is present.
func (e Env) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// Require returns the value for key or an error naming the missing variable.
// Xcode always sets these for script phases, so a miss means unifw was run
// outside a build phase.
func (e Env) Require(key string) (string, error) {
	v, ok := e[key]
	if !ok || v == "" {
		return "", fmt.Errorf("required build setting %s is not set (unifw must run inside an Xcode build phase)", key)
	}
	return v, nil
}

// Split returns the space-separated list stored under key.
func (e Env) Split(key string) []string {
	return strings.Fields(e[key])
}

// Expand substitutes ${VAR} / $VAR references in s from the snapshot.
func (e Env) Expand(s string) string {
	return os.Expand(s, func(key string) string { return e[key] })
}

// Sorted returns the snapshot as sorted KEY=VALUE pairs, suitable for
// exec.Cmd.Env and for deterministic command lines.
func (e Env) Sorted() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+e[k])
	}
	return out
}
