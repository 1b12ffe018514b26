package unifw

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// orchestrateTestRun builds a master run around a throwaway project without
// touching the project model loader or the executor.
func orchestrateTestRun(t *testing.T, model *ProjectModel) *Run {
	t.Helper()
	env := testEnv(t)
	env["BUILT_PRODUCTS_DIR"] = t.TempDir()
	env["EXECUTABLE_PATH"] = "MyLib.framework/Versions/A/MyLib"

	store, err := NewStateStore(env)
	if err != nil {
		t.Fatal(err)
	}
	p := &Project{
		Model:         model,
		Env:           env,
		LocalPlatform: "iphoneos",
		OtherPlatform: "iphonesimulator",
		LocalExePath:  filepath.Join(env["BUILT_PRODUCTS_DIR"], env["EXECUTABLE_PATH"]),
	}
	cfg := &Config{Values: map[string]string{}}
	applyDefaults(cfg)
	return &Run{
		Cfg:     cfg,
		Env:     env,
		Store:   store,
		Project: p,
		Master:  true,
	}
}

func TestBuildRejectsEmptyTarget(t *testing.T) {
	r := orchestrateTestRun(t, &ProjectModel{TargetName: "MyLib"})
	err := r.Build()
	if !errors.Is(err, errNoCompilableSources) {
		t.Errorf("Build() = %v, want errNoCompilableSources", err)
	}
}

func TestBuildEntryGuard(t *testing.T) {
	model := &ProjectModel{
		TargetName:        "MyLib",
		PublicHeaders:     [][]string{{"MyLib", "a.h"}},
		CompilableSources: []string{"a.m"},
	}
	r := orchestrateTestRun(t, model)

	// Universal executable older than the last completed build: nothing
	// to redo, so Build must exit before invoking the slave.
	if err := os.MkdirAll(filepath.Dir(r.Project.LocalExePath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(r.Project.LocalExePath, []byte("bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	r.Store.State.LastCompletion = time.Now().Add(time.Hour).UnixNano()

	if err := r.Build(); err != nil {
		t.Fatalf("up-to-date build should be a no-op, got %v", err)
	}
	if len(r.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", r.Warnings())
	}
}

func TestWarnNoPublicHeaders(t *testing.T) {
	model := &ProjectModel{
		TargetName:        "MyLib",
		CompilableSources: []string{"a.m"},
	}
	r := orchestrateTestRun(t, model)

	// Same up-to-date shortcut as above; the warning must still fire
	// because header visibility is wrong regardless of staleness.
	if err := os.MkdirAll(filepath.Dir(r.Project.LocalExePath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(r.Project.LocalExePath, []byte("bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	r.Store.State.LastCompletion = time.Now().Add(time.Hour).UnixNano()

	if err := r.Build(); err != nil {
		t.Fatal(err)
	}
	if len(r.Warnings()) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(r.Warnings()), r.Warnings())
	}
}

func TestCheckDerivedDataInSearchPaths(t *testing.T) {
	r := orchestrateTestRun(t, &ProjectModel{TargetName: "MyLib"})
	r.Env["FRAMEWORK_SEARCH_PATHS"] = "/Users/me/Library/Developer/Xcode/DerivedData/x/../Products"
	r.Env["LIBRARY_SEARCH_PATHS"] = "/usr/lib"

	r.checkDerivedDataInSearchPaths()
	if len(r.Warnings()) != 1 {
		t.Errorf("got %d warnings, want 1: %v", len(r.Warnings()), r.Warnings())
	}
}

func TestCriticalWindow(t *testing.T) {
	if InCritical() {
		t.Fatal("critical flag set at test start")
	}
	EnterCritical()
	if !InCritical() {
		t.Error("EnterCritical did not set the flag")
	}
	LeaveCritical()
	if InCritical() {
		t.Error("LeaveCritical did not clear the flag")
	}
}
