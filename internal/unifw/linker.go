package unifw

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// SingleArchLinkCommand links every object file of one architecture into
// our intermediate archive. The object list comes from the LINK_FILE_LIST
// manifest xcodebuild generated for this variant and architecture.
func SingleArchLinkCommand(p *Project, arch string) []string {
	cmd := []string{p.LibtoolPath,
		"-static",
		"-arch_only", arch,
		"-syslibroot", p.Env.Get("SDKROOT"),
		"-L" + p.Env.Get("BUILT_PRODUCTS_DIR"),
		"-filelist", p.Env.Get("LINK_FILE_LIST_" + p.Env.Get("CURRENT_VARIANT") + "_" + arch),
	}
	if flags := p.Env.Get("OTHER_LDFLAGS"); flags != "" {
		cmd = append(cmd, flags)
	}
	if flags := p.Env.Get("WARNING_LDFLAGS"); flags != "" {
		cmd = append(cmd, flags)
	}
	cmd = append(cmd, "-o", p.LinkedUniversalArchivePath(arch))
	return cmd
}

// FinalLinkCommand merges every architecture of both platforms plus the
// static dependencies into the universal archive. Input order is fixed:
// local archives, slave archives, framework executables, library archives.
// Downstream linking depends on that precedence, and a stable order keeps
// the output reproducible.
func FinalLinkCommand(p *Project, state *BuildState) []string {
	cmd := []string{p.LibtoolPath, "-static"}
	cmd = append(cmd, p.LocalLinkedArchivePaths...)
	cmd = append(cmd, state.SlaveLinkedArchivePaths...)
	for _, fw := range p.Model.StaticFrameworks {
		cmd = append(cmd, p.DependencyExePath(fw, true))
	}
	for _, lib := range p.Model.StaticLibraries {
		cmd = append(cmd, p.DependencyExePath(lib, false))
	}
	cmd = append(cmd, "-o", p.Env.Get("BUILT_PRODUCTS_DIR")+"/"+p.Env.Get("EXECUTABLE_PATH"))
	return cmd
}

// LinkTargetsClean reports whether every intermediate archive is at least
// as new as the per-architecture product Xcode linked. A missing or
// unreadable archive on either side counts as dirty.
func LinkTargetsClean(p *Project) bool {
	for _, arch := range p.LocalArchitectures {
		linkTime, err := mtimeOf(p.LinkedArchivePath(arch))
		if err != nil {
			return false
		}
		unifwTime, err := mtimeOf(p.LinkedUniversalArchivePath(arch))
		if err != nil {
			return false
		}
		if linkTime > unifwTime {
			return false
		}
	}
	return true
}

// RelinkProject refreshes the per-architecture archives and, on the
// master, redoes the universal link when anything went stale. Staleness is
// decided before the per-arch relinks run, otherwise the freshly written
// intermediates would always look clean. The per-arch step itself always
// runs: it is cheap and overwrites in place.
func RelinkProject(e *Executor, p *Project, state *BuildState, master bool) error {
	stale := !LinkTargetsClean(p)

	for _, arch := range p.LocalArchitectures {
		args := SingleArchLinkCommand(p, arch)
		if err := runLink(e, args); err != nil {
			return fmt.Errorf("linking %s for %s: %w", arch, p.LocalPlatform, err)
		}
	}

	if !master {
		return nil
	}
	if !stale {
		debugf("universal archive up to date, skipping final link\n")
		return nil
	}

	args := FinalLinkCommand(p, state)
	// Everything between the tool name and -o is an input archive; a
	// missing one means the slave report or the project model is wrong.
	for _, input := range args[2 : len(args)-2] {
		if _, err := os.Stat(input); err != nil {
			return fmt.Errorf("universal link input missing: %s", input)
		}
	}
	if err := runLink(e, args); err != nil {
		return fmt.Errorf("universal link failed: %w", err)
	}
	return nil
}

func runLink(e *Executor, args []string) error {
	cmd := exec.Command(args[0], args[1:]...)
	echo := e.Echo
	e.Echo = false
	out, err := e.RunCapture(cmd)
	e.Echo = echo
	colArrow.Print("-> ")
	colInfo.Println("Cmd " + strings.Join(args, " "))
	if out != "" {
		fmt.Print(out)
	}
	return err
}
