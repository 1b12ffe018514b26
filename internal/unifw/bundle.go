package unifw

import (
	"fmt"
	"os"
	"strings"
)

// AddFrameworkSymlinks repairs the versioned-bundle indirection: the
// Versions/Current link, the top-level Headers and Resources links (only
// when those directories exist inside the current version) and the
// top-level executable link. Links are created only when absent, and only
// when their target resolves; a dangling target is an ordering bug, not
// something to skip quietly.
func AddFrameworkSymlinks(p *Project) error {
	baseDir := p.LocalBuiltFWPath + "/"
	fwVersion, err := p.Env.Require("FRAMEWORK_VERSION")
	if err != nil {
		return err
	}
	exeName, err := p.Env.Require("EXECUTABLE_NAME")
	if err != nil {
		return err
	}

	if err := attemptSymlink(baseDir+"Versions/Current", fwVersion); err != nil {
		return err
	}
	if dirExists(baseDir + "Versions/Current/Headers") {
		if err := attemptSymlink(baseDir+"Headers", "Versions/Current/Headers"); err != nil {
			return err
		}
	}
	if dirExists(baseDir + "Versions/Current/Resources") {
		if err := attemptSymlink(baseDir+"Resources", "Versions/Current/Resources"); err != nil {
			return err
		}
	}
	return attemptSymlink(baseDir+exeName, "Versions/Current/"+exeName)
}

// BuildEmbeddedFramework assembles the wrapper directory form of the
// bundle, suitable for embedding inside an application package. The
// framework itself is deep-copied with its symlinks intact; shared
// resources are then linked back into the copied framework so they exist
// only once. Info.plist and localized *.lproj directories are deliberately
// not linked: the embedding app supplies or copies those itself.
func BuildEmbeddedFramework(p *Project) error {
	fwPath := p.LocalBuiltFWPath
	embeddedPath := p.LocalBuiltEmbeddedFWPath
	fwName, err := p.Env.Require("WRAPPER_NAME")
	if err != nil {
		return err
	}

	if err := removePath(embeddedPath); err != nil {
		return err
	}
	if err := ensureDir(embeddedPath); err != nil {
		return err
	}
	if err := copyTree(fwPath, embeddedPath+"/"+fwName); err != nil {
		return fmt.Errorf("copying framework into embedded bundle: %w", err)
	}
	if err := ensureDir(embeddedPath + "/Resources"); err != nil {
		return err
	}

	if !dirExists(fwPath + "/Resources") {
		return nil
	}
	entries, err := os.ReadDir(fwPath + "/Resources")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if name == "Info.plist" || strings.HasSuffix(name, ".lproj") {
			continue
		}
		link := embeddedPath + "/Resources/" + name
		target := "../" + fwName + "/Resources/" + name
		if err := attemptSymlink(link, target); err != nil {
			return err
		}
	}
	return nil
}
