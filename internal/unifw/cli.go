package unifw

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gookit/color"
)

// printHelp prints the commands table
func PrintHelp() {
	colSuccess.Println("Usage: unifw <command> [arguments]")
	colSuccess.Println("Without a command, unifw runs the universal build (the Xcode build phase entry point)")
	fmt.Println()
	color.Info.Println("Available Commands:")

	type cmdInfo struct {
		Cmd  string
		Args string
		Desc string
	}
	cmds := []cmdInfo{
		{"build", "", "Run the universal framework build for the current platform"},
		{"state", "", "Show the persisted build state of every platform"},
		{"manifest", "[bundle]", "Show the artifact manifest of the embedded framework"},
		{"dist", "[-f zst|gz|xz]", "Pack the embedded framework into a dist tarball"},
		{"upload", "[--cleanup]", "Upload dist tarballs to the artifact mirror"},
		{"log", "[dir]", "TUI viewer for the per-platform build logs"},
		{"version, --version", "", "Version information"},
	}

	maxLen := 0
	for _, c := range cmds {
		length := len(c.Cmd) + len(c.Args)
		if c.Args != "" {
			length++
		}
		if length > maxLen {
			maxLen = length
		}
	}
	columnWidth := maxLen + 4

	for _, c := range cmds {
		var usage string
		if c.Args != "" {
			usage = fmt.Sprintf("  %s %s", c.Cmd, c.Args)
		} else {
			usage = fmt.Sprintf("  %s", c.Cmd)
		}
		padding := strings.Repeat(" ", columnWidth-len(usage))
		colSuccess.Print(usage)
		fmt.Print(padding)
		fmt.Println(c.Desc)
	}
}

// PrintVersion prints build identification.
func PrintVersion() {
	fmt.Printf("unifw %s (built %s)\n", version, buildDate)
}

// RunBuildCommand is the build-phase entry point: it owns the success /
// warning / failure policy. Whatever happens, the state is persisted before
// returning — a failed build persists a fresh state so the next invocation
// does not inherit a half-built one.
func RunBuildCommand(ctx context.Context, cfg *Config) int {
	env := CaptureEnv()
	executor := NewExecutor(ctx)

	store, err := NewStateStore(env)
	if err != nil {
		cPrintf(colError, "Build failed: %v\n", err)
		return 1
	}

	run, err := NewRun(cfg, env, executor, store)
	if err == nil {
		defer run.Close()
		err = run.Build()
	}

	code := 0
	switch {
	case err != nil:
		cPrintf(colError, "Build failed: %v\n", err)
		store.Reset()
		code = 1
	case run != nil && len(run.Warnings()) > 0:
		code = reportWarnings(cfg, run.Warnings())
	default:
		colArrow.Print("-> ")
		colSuccess.Println("Build completed")
	}

	if perr := store.Persist(); perr != nil {
		colError.Println("Could not persist build state:", perr)
		code = 1
	}
	return code
}

// reportWarnings prints the warnings the run collected and resolves them to
// an exit code. When warnings escalate, each one is restated so the build
// log shows what caused the non-zero exit.
func reportWarnings(cfg *Config, warnings []string) int {
	colWarn.Println("Build completed with warnings")
	if !cfg.Bool("UNIFW_FAIL_ON_WARNINGS") {
		return 0
	}
	cPrintf(colError, "Failing build: UNIFW_FAIL_ON_WARNINGS is enabled and %d warning(s) were issued:\n", len(warnings))
	for _, w := range warnings {
		cPrintln(colError, "  - "+w)
	}
	return 1
}

// HandleStateCommand dumps every platform's persisted state.
func HandleStateCommand(env Env) error {
	store, err := NewStateStore(env)
	if err != nil {
		return err
	}
	for _, platform := range store.State.Platforms {
		path := store.PlatformPath(platform)
		colArrow.Print("-> ")
		colSuccess.Println(platform + ": " + path)
		st := loadStateFile(path)
		if st == nil {
			cPrintln(colWarn, "  missing or unparseable")
			continue
		}
		pretty, err := json.MarshalIndent(st, "  ", "  ")
		if err != nil {
			return err
		}
		fmt.Println("  " + string(pretty))
	}
	return nil
}

// HandleManifestCommand prints the manifest for the given bundle, or for
// the embedded framework derived from the environment.
func HandleManifestCommand(env Env, args []string) error {
	bundle := EmbeddedBundlePath(env)
	if len(args) > 0 {
		bundle = args[0]
	}
	entries, err := ReadManifest(bundle)
	if err != nil {
		return fmt.Errorf("no manifest for %s: %w", bundle, err)
	}
	for _, entry := range entries {
		if entry.B3Sum != "" {
			fmt.Printf("%s  %s\n", entry.B3Sum, entry.Path)
		} else {
			fmt.Println(entry.Path)
		}
	}
	return nil
}

// HandleDistCommand packs the embedded framework for distribution.
func HandleDistCommand(cfg *Config, env Env, args []string) error {
	format := cfg.Values["UNIFW_DIST_FORMAT"]
	for i := 0; i < len(args); i++ {
		if (args[i] == "-f" || args[i] == "--format") && i+1 < len(args) {
			format = args[i+1]
			i++
		}
	}
	_, err := CreateDistArchive(cfg, env, EmbeddedBundlePath(env), format)
	return err
}

// HandleLogCommand opens the build log viewer. The directory defaults to
// the project temp dir where the orchestrator writes its logs.
func HandleLogCommand(env Env, args []string) error {
	dir := env.Get("PROJECT_TEMP_DIR")
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		return fmt.Errorf("no log directory: pass one or set PROJECT_TEMP_DIR")
	}
	return RunLogViewer(dir)
}

// Fatal prints an error the way the build log expects and exits.
func Fatal(err error) {
	colError.Println("Error:", err)
	os.Exit(1)
}
