package unifw

import (
	"errors"

	"github.com/gookit/color"
	"golang.org/x/term"
)

// Global variables
var (
	Debug      bool
	ConfigFile = "/etc/unifw.conf"
	version    = "dev"     // overridden at build time
	buildDate  = "unknown" // overridden at build time

	errNoCompilableSources = errors.New("no compilable sources in target")
	errTooManyPlatforms    = errors.New("more than two supported platforms")
)

// State file name kept in each platform's Objects dir. Cleaning any
// platform invalidates the shared build state.
const stateFileName = "unifw_build_state.json"

// Marker the master injects into the slave's environment.
const masterPlatformVar = "UNIFW_MASTER_PLATFORM"

// xcodebuild prints a full environment dump before this banner; everything
// before the first occurrence is noise.
const buildBanner = "=== BUILD NATIVE TARGET "

// color helpers
var (
	colInfo    = color.Info // style provided by gookit/color
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
)

func init() {
	if !term.IsTerminal(int(colorFd())) {
		color.Disable()
	}
}
