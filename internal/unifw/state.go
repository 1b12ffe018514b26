package unifw

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"time"
)

// BuildState is the only thing unifw persists across invocations. One copy
// lives in each platform's Objects dir, so cleaning either platform
// invalidates the shared state. The slave-* fields are how the slave
// process reports its artifacts back to the master: they are reset together
// and populated together, never partially.
type BuildState struct {
	Platforms                []string `json:"platforms"`
	LastCompletion           int64    `json:"last_completion"` // unix nanoseconds of the last full universal build
	SlavePlatform            string   `json:"slave_platform"`
	SlaveArchitectures       []string `json:"slave_architectures"`
	SlaveLinkedArchivePaths  []string `json:"slave_linked_archive_paths"`
	SlaveBuiltFWPath         string   `json:"slave_built_fw_path"`
	SlaveBuiltEmbeddedFWPath string   `json:"slave_built_embedded_fw_path"`
}

// StateStore reads and writes the per-platform build state files.
type StateStore struct {
	env       Env
	platforms []string

	State BuildState
}

// NewStateStore builds a store for the participating platforms and loads
// whatever state the previous invocation left behind.
func NewStateStore(env Env) (*StateStore, error) {
	platforms := env.Split("SUPPORTED_PLATFORMS")
	if len(platforms) != 2 {
		return nil, fmt.Errorf("%w: SUPPORTED_PLATFORMS=%q (need exactly two)",
			errTooManyPlatforms, env.Get("SUPPORTED_PLATFORMS"))
	}
	s := &StateStore{env: env, platforms: platforms}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// PlatformPath returns the state file location inside the given platform's
// Objects dir.
func (s *StateStore) PlatformPath(platform string) string {
	return fmt.Sprintf("%s/%s-%s/%s.build/Objects-%s/%s",
		s.env.Get("PROJECT_TEMP_DIR"),
		s.env.Get("CONFIGURATION"),
		platform,
		s.env.Get("PRODUCT_NAME"),
		s.env.Get("CURRENT_VARIANT"),
		stateFileName)
}

// Reset discards everything but the platform set.
func (s *StateStore) Reset() {
	s.State = BuildState{
		Platforms:               append([]string(nil), s.platforms...),
		SlaveArchitectures:      []string{},
		SlaveLinkedArchivePaths: []string{},
	}
}

// Reload reads every platform's copy of the state. The copies are adopted
// only when all of them are present, parse, and agree; anything else means
// a platform was cleaned or a build died halfway, and trusting the leftover
// state could merge stale artifacts into the universal binary. Fail open to
// a fresh state instead.
func (s *StateStore) Reload() error {
	s.Reset()
	states := make([]*BuildState, 0, len(s.platforms))
	for _, platform := range s.platforms {
		states = append(states, loadStateFile(s.PlatformPath(platform)))
	}
	for _, st := range states {
		if st == nil || !reflect.DeepEqual(st, states[0]) {
			debugf("build state missing or diverged, resetting\n")
			s.Reset()
			return nil
		}
	}
	s.State = *states[0]
	return nil
}

// Persist writes the current state to every platform's location, not just
// the local one. The slave process is launched independently and must see
// what the master wrote before it starts, and vice versa after it exits.
func (s *StateStore) Persist() error {
	data, err := json.Marshal(&s.State)
	if err != nil {
		return err
	}
	for _, platform := range s.platforms {
		path := s.PlatformPath(platform)
		if err := ensureParentDir(path); err != nil {
			return fmt.Errorf("cannot create state dir for %s: %w", platform, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("cannot persist build state for %s: %w", platform, err)
		}
	}
	return nil
}

// SetSlaveProperties records this platform's artifacts for the master to
// consume after the slave process exits. All five fields move together.
func (s *StateStore) SetSlaveProperties(p *Project) {
	s.State.SlavePlatform = p.LocalPlatform
	s.State.SlaveArchitectures = append([]string{}, p.LocalArchitectures...)
	s.State.SlaveLinkedArchivePaths = append([]string{}, p.LocalLinkedArchivePaths...)
	s.State.SlaveBuiltFWPath = p.LocalBuiltFWPath
	s.State.SlaveBuiltEmbeddedFWPath = p.LocalBuiltEmbeddedFWPath
}

// StampCompletion marks a fully successful universal build and clears the
// transient slave report.
func (s *StateStore) StampCompletion(now time.Time) {
	s.Reset()
	s.State.LastCompletion = now.UnixNano()
}

// loadStateFile parses one state file. Any I/O or decode error counts as
// "missing": the caller resolves that by resetting, never by failing.
func loadStateFile(path string) *BuildState {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var st BuildState
	if err := json.Unmarshal(data, &st); err != nil {
		debugf("unparseable build state %s: %v\n", path, err)
		return nil
	}
	if st.SlaveArchitectures == nil {
		st.SlaveArchitectures = []string{}
	}
	if st.SlaveLinkedArchivePaths == nil {
		st.SlaveLinkedArchivePaths = []string{}
	}
	return &st
}
