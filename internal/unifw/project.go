package unifw

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectModel is the structured description of the build target, produced
// ahead of time by the project-file converter. unifw consumes it read-only;
// it never touches the pbxproj itself.
type ProjectModel struct {
	TargetName string `json:"target"`

	// Public header paths as path-component sequences relative to the
	// project root, in build-phase order.
	PublicHeaders [][]string `json:"publicHeaders"`

	// Static archive (.a) and static framework dependencies of the
	// target, again as component sequences relative to the source root.
	StaticLibraries  [][]string `json:"staticLibraries"`
	StaticFrameworks [][]string `json:"staticFrameworks"`

	CompilableSources []string `json:"compilableSources"`
}

// LoadProjectModel reads the prepared model document. The location defaults
// to $PROJECT_TEMP_DIR/unifw_project.json and can be overridden with
// UNIFW_PROJECT_MODEL.
func LoadProjectModel(env Env) (*ProjectModel, error) {
	path := env.Get("UNIFW_PROJECT_MODEL")
	if path == "" {
		tempDir, err := env.Require("PROJECT_TEMP_DIR")
		if err != nil {
			return nil, err
		}
		path = filepath.Join(tempDir, "unifw_project.json")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read project model %s: %w", path, err)
	}
	var model ProjectModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("malformed project model %s: %w", path, err)
	}
	if model.TargetName == "" {
		return nil, fmt.Errorf("project model %s has no target name", path)
	}
	return &model, nil
}

// Project holds the model plus everything derived from the build
// environment for the current invocation.
type Project struct {
	Model *ProjectModel
	Env   Env

	LocalPlatform string
	OtherPlatform string
	SDKVersion    string

	LocalArchitectures       []string
	LocalExePath             string
	LocalBuiltFWPath         string
	LocalBuiltEmbeddedFWPath string
	LocalLinkedArchivePaths  []string

	LibtoolPath string
}

// NewProject derives all local paths from the environment snapshot.
// Exactly two supported platforms are required; the master/slave pairing is
// undefined for any other count.
func NewProject(model *ProjectModel, env Env) (*Project, error) {
	p := &Project{Model: model, Env: env}

	var err error
	if p.LocalPlatform, err = env.Require("PLATFORM_NAME"); err != nil {
		return nil, err
	}

	platforms := env.Split("SUPPORTED_PLATFORMS")
	if len(platforms) != 2 {
		return nil, fmt.Errorf("%w: SUPPORTED_PLATFORMS=%q (need exactly two)",
			errTooManyPlatforms, env.Get("SUPPORTED_PLATFORMS"))
	}
	for _, platform := range platforms {
		if platform != p.LocalPlatform {
			p.OtherPlatform = platform
		}
	}
	if p.OtherPlatform == "" {
		return nil, fmt.Errorf("local platform %s not in SUPPORTED_PLATFORMS %q",
			p.LocalPlatform, env.Get("SUPPORTED_PLATFORMS"))
	}

	sdkName, err := env.Require("SDK_NAME")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(sdkName, p.LocalPlatform) {
		return nil, fmt.Errorf("SDK_NAME %s doesn't start with platform %s", sdkName, p.LocalPlatform)
	}
	p.SDKVersion = strings.TrimPrefix(sdkName, p.LocalPlatform)

	builtProducts, err := env.Require("BUILT_PRODUCTS_DIR")
	if err != nil {
		return nil, err
	}
	exePath, err := env.Require("EXECUTABLE_PATH")
	if err != nil {
		return nil, err
	}
	wrapperName, err := env.Require("WRAPPER_NAME")
	if err != nil {
		return nil, err
	}

	p.LocalArchitectures = env.Split("ARCHS")
	p.LocalExePath = builtProducts + "/" + exePath
	p.LocalBuiltFWPath = builtProducts + "/" + wrapperName
	p.LocalBuiltEmbeddedFWPath = EmbeddedBundlePath(env)
	for _, arch := range p.LocalArchitectures {
		p.LocalLinkedArchivePaths = append(p.LocalLinkedArchivePaths, p.LinkedUniversalArchivePath(arch))
	}
	p.LibtoolPath = env.Get("DT_TOOLCHAIN_DIR") + "/usr/bin/libtool"

	return p, nil
}

// EmbeddedBundlePath derives the embedded-bundle location from the product
// naming alone, so inspection commands can compute it without loading the
// project model.
func EmbeddedBundlePath(env Env) string {
	fw := env.Get("BUILT_PRODUCTS_DIR") + "/" + env.Get("WRAPPER_NAME")
	return strings.TrimSuffix(fw, filepath.Ext(fw)) + ".embeddedframework"
}

// LinkedArchivePath is where Xcode's own per-architecture link product
// lands for the current variant.
func (p *Project) LinkedArchivePath(arch string) string {
	objDir := p.Env.Get("OBJECT_FILE_DIR_" + p.Env.Get("CURRENT_VARIANT"))
	return objDir + "/" + arch + "/" + p.Env.Get("EXECUTABLE_NAME")
}

// LinkedUniversalArchivePath is our intermediate per-architecture archive,
// kept next to Xcode's so cleaning the platform removes both.
func (p *Project) LinkedUniversalArchivePath(arch string) string {
	return p.LinkedArchivePath(arch) + ".unifw"
}

// DependencyExePath resolves a static dependency to the path of its
// linkable executable. Frameworks are directories, so the executable sits
// one level deeper under the framework's own name.
func (p *Project) DependencyExePath(components []string, framework bool) string {
	path := p.Env.Get("SOURCE_ROOT") + "/" + strings.Join(components, "/")
	if framework {
		last := components[len(components)-1]
		path += "/" + strings.TrimSuffix(last, filepath.Ext(last))
	}
	return path
}

// MovableHeadersRelativeTo returns the public header paths that start with
// relativePath, truncated to be relative to it. Headers outside the prefix
// are not movable and are dropped, as is a header the prefix covers
// entirely: truncating it would leave no components at all. The autodetected
// prefix of a single public header is that header's full path, so this case
// is reachable with plain configuration.
func (p *Project) MovableHeadersRelativeTo(relativePath []string) [][]string {
	var result [][]string
	for _, header := range p.Model.PublicHeaders {
		if len(header) <= len(relativePath) {
			continue
		}
		match := true
		for i, comp := range relativePath {
			if header[i] != comp {
				match = false
				break
			}
		}
		if match {
			result = append(result, header[len(relativePath):])
		}
	}
	return result
}
