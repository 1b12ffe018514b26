package unifw

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// isCriticalAtomic is 1 while the master copies final artifacts across
// platforms; the signal handler in main refuses the first interrupt during
// that window.
var isCriticalAtomic atomic.Int32

func EnterCritical()   { isCriticalAtomic.Store(1) }
func LeaveCritical()   { isCriticalAtomic.Store(0) }
func InCritical() bool { return isCriticalAtomic.Load() == 1 }

// Run carries everything one build invocation needs, including the
// warnings issued so far. Warnings live here, not in a package variable,
// so the escalation decision at the end is a pure function of the run.
type Run struct {
	Cfg     *Config
	Env     Env
	Exec    *Executor
	Store   *StateStore
	Project *Project
	Master  bool

	warnings []string
	logFile  *os.File
}

// NewRun resolves the role, loads the project model, and opens the
// per-platform build log consumed by 'unifw log'. The state store is
// created by the caller so it can persist a clean state even when run
// construction itself fails.
func NewRun(cfg *Config, env Env, exec *Executor, store *StateStore) (*Run, error) {
	model, err := LoadProjectModel(env)
	if err != nil {
		return nil, err
	}
	project, err := NewProject(model, env)
	if err != nil {
		return nil, err
	}
	r := &Run{
		Cfg:     cfg,
		Env:     env,
		Exec:    exec,
		Store:   store,
		Project: project,
		Master:  IsMaster(env),
	}
	r.openLog()
	return r, nil
}

func (r *Run) openLog() {
	tempDir := r.Env.Get("PROJECT_TEMP_DIR")
	if tempDir == "" {
		return
	}
	if err := ensureDir(tempDir); err != nil {
		return
	}
	f, err := os.Create(buildLogPath(r.Env, r.Project.LocalPlatform))
	if err != nil {
		debugf("cannot open build log: %v\n", err)
		return
	}
	r.logFile = f
}

// buildLogPath is where one platform's build log lands; the TUI viewer
// globs for these.
func buildLogPath(env Env, platform string) string {
	return env.Get("PROJECT_TEMP_DIR") + "/unifw-" + platform + ".log"
}

// rolePrefix tags log lines the way the two cooperating processes are told
// apart when their output interleaves in the Xcode log.
func (r *Run) rolePrefix() string {
	role := "S"
	if r.Master {
		role = "M"
	}
	return "(" + role + " " + r.Project.LocalPlatform + ")"
}

func (r *Run) Infof(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	colArrow.Print("-> ")
	colSuccess.Println(r.rolePrefix() + " " + msg)
	r.appendLog("INFO: " + msg)
}

func (r *Run) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.warnings = append(r.warnings, msg)
	colWarn.Println(r.rolePrefix() + " WARNING: " + msg)
	r.appendLog("WARNING: " + msg)
}

func (r *Run) appendLog(line string) {
	if r.logFile == nil {
		return
	}
	fmt.Fprintln(r.logFile, time.Now().Format("15:04:05")+" "+line)
}

// Warnings returns the advisory warnings issued during this run.
func (r *Run) Warnings() []string {
	return r.warnings
}

func (r *Run) Close() {
	if r.logFile != nil {
		r.logFile.Close()
		r.logFile = nil
	}
}

// checkDerivedDataInSearchPaths warns when DerivedData leaks into search
// paths. Xcode adds these on its own sometimes; they point at another
// build's output and must be removed by hand.
func (r *Run) checkDerivedDataInSearchPaths() {
	for _, key := range []string{"FRAMEWORK_SEARCH_PATHS", "LIBRARY_SEARCH_PATHS", "HEADER_SEARCH_PATHS"} {
		path := r.Env.Get(key)
		if strings.Contains(path, "DerivedData") && strings.Contains(path, "/../") {
			r.Warnf("%q contains reference to 'DerivedData'.", key)
		}
	}
}

// Build is the per-invocation state machine. The master persists state,
// triggers the slave, reloads the state the slave filled in, and after both
// sides assembled their bundles copies the finished artifacts to the
// slave's reported locations. The slave runs the identical link/header/
// bundle sequence for its own platform and only differs in reporting its
// artifacts instead of finalizing.
func (r *Run) Build() error {
	p := r.Project
	state := r.Store

	rebuildNeeded := true

	if r.Master {
		debugf("building as MASTER\n")

		if len(p.Model.CompilableSources) == 0 {
			return fmt.Errorf("%w %s: add at least one source file to the target",
				errNoCompilableSources, p.Model.TargetName)
		}

		if r.Cfg.Bool("UNIFW_WARN_DERIVED_DATA") {
			r.checkDerivedDataInSearchPaths()
		}
		if r.Cfg.Bool("UNIFW_WARN_NO_PUBLIC_HEADERS") && len(p.Model.PublicHeaders) == 0 {
			r.Warnf("no headers in target %s were marked public; move at least one header to Public in the Copy Headers phase", p.Model.TargetName)
		}

		// Entry guard: when the universal executable postdates the last
		// completed build there is nothing to redo.
		if exeTime, err := mtimeOf(p.LocalExePath); err == nil {
			rebuildNeeded = exeTime > state.State.LastCompletion
		}
	} else {
		debugf("building as SLAVE\n")
	}

	if !rebuildNeeded {
		r.Infof("universal build is up to date")
		return nil
	}

	if r.Master {
		if err := state.Persist(); err != nil {
			return err
		}
		r.Infof("invoking slave build for %s", p.OtherPlatform)
		if err := RunSlaveBuild(r.Exec, p); err != nil {
			return err
		}
		if err := state.Reload(); err != nil {
			return err
		}
		if state.State.SlavePlatform == "" {
			return fmt.Errorf("slave build for %s finished without reporting artifacts", p.OtherPlatform)
		}
	} else {
		state.SetSlaveProperties(p)
	}

	r.Infof("linking %s", strings.Join(p.LocalArchitectures, " "))
	if err := RelinkProject(r.Exec, p, &state.State, r.Master); err != nil {
		return err
	}

	if r.Cfg.Bool("UNIFW_DEEP_HEADER_HIERARCHY") {
		r.Infof("restoring public header hierarchy")
		if err := RestoreHeaderHierarchy(r.Cfg, p); err != nil {
			return err
		}
	}

	r.Infof("repairing framework symlinks")
	if err := AddFrameworkSymlinks(p); err != nil {
		return err
	}
	r.Infof("assembling embedded framework")
	if err := BuildEmbeddedFramework(p); err != nil {
		return err
	}

	if r.Master {
		// Both platform build dirs must end up holding the identical
		// universal artifact; interrupting the copy would leave the
		// slave side half written, hence the critical window.
		r.Infof("copying universal bundles to %s", state.State.SlavePlatform)
		EnterCritical()
		err := copyTree(p.LocalBuiltFWPath, state.State.SlaveBuiltFWPath)
		if err == nil {
			err = copyTree(p.LocalBuiltEmbeddedFWPath, state.State.SlaveBuiltEmbeddedFWPath)
		}
		LeaveCritical()
		if err != nil {
			return fmt.Errorf("copying artifacts to slave platform: %w", err)
		}

		if err := WriteManifest(p); err != nil {
			r.Warnf("could not write artifact manifest: %v", err)
		}

		state.StampCompletion(time.Now())
	}

	return nil
}
