package unifw

import (
	"fmt"
	"os/exec"
	"strings"
)

// Settings that must never be carried into the slave invocation. The map
// file path points into the master's intermediates and would make the
// slave's linker write there.
var slaveIgnoredVars = []string{"LD_MAP_FILE_PATH"}

// SlaveEnvironment translates the master's environment into overrides for
// the other platform. Only variables whose value references the build or
// temp roots are carried, with the platform name substituted, so that
// xcodebuild keeps building under the same roots instead of falling back to
// a "build" dir in the project. LINK_FILE_LIST_* variables are per-platform
// manifests that xcodebuild regenerates; passing them through would point
// the slave's libtool at the master's object files.
func SlaveEnvironment(p *Project) Env {
	buildRoot := p.Env.Get("BUILD_ROOT")
	tempRoot := p.Env.Get("TEMP_ROOT")
	newEnv := make(Env)
	for key, value := range p.Env {
		if strings.HasPrefix(key, "LINK_FILE_LIST_") {
			continue
		}
		ignored := false
		for _, skip := range slaveIgnoredVars {
			if key == skip {
				ignored = true
				break
			}
		}
		if ignored {
			continue
		}
		if (buildRoot != "" && strings.Contains(value, buildRoot)) ||
			(tempRoot != "" && strings.Contains(value, tempRoot)) {
			newEnv[key] = strings.ReplaceAll(value, p.LocalPlatform, p.OtherPlatform)
		}
	}
	return newEnv
}

// SlaveBuildCommand assembles the recursive xcodebuild invocation for the
// other platform. The master marker rides along so the slave resolves its
// role correctly.
func SlaveBuildCommand(p *Project) []string {
	cmd := []string{"xcodebuild",
		"-project", p.Env.Get("PROJECT_FILE_PATH"),
		"-target", p.Model.TargetName,
		"-configuration", p.Env.Get("CONFIGURATION"),
		"-sdk", p.OtherPlatform + p.SDKVersion,
	}
	cmd = append(cmd, SlaveEnvironment(p).Sorted()...)
	cmd = append(cmd, masterPlatformVar+"="+p.LocalPlatform)
	cmd = append(cmd, p.Env.Get("ACTION"))
	return cmd
}

// RunSlaveBuild synchronously runs the slave's build and logs its output.
// xcodebuild dumps the whole environment before it gets to work; everything
// before the first per-target banner is dropped from the log. A non-zero
// exit from the slave fails the master.
func RunSlaveBuild(e *Executor, p *Project) error {
	args := SlaveBuildCommand(p)
	cmd := exec.Command(args[0], args[1:]...)

	echo := e.Echo
	e.Echo = false
	out, err := e.RunCapture(cmd)
	e.Echo = echo

	colArrow.Print("-> ")
	colInfo.Println("Cmd " + strings.Join(args, " "))
	fmt.Println(trimSlaveOutput(out))

	if err != nil {
		return fmt.Errorf("slave build for %s failed: %w", p.OtherPlatform, err)
	}
	return nil
}

func trimSlaveOutput(out string) string {
	if idx := strings.Index(out, buildBanner); idx >= 0 {
		return out[idx:]
	}
	return out
}
