package unifw

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Xcode copies every public header to the top level of the headers folder.
// This file moves them back into the hierarchy they had in the source tree.

// headerHierarchyTop resolves the configured top-of-hierarchy template, or
// autodetects it as the longest common component prefix of all public
// headers when the template is empty. Autodetection fails open to an empty
// prefix, which makes every header movable relative to the project root.
func headerHierarchyTop(cfg *Config, p *Project) []string {
	template := cfg.Values["UNIFW_DEEP_HEADER_TOP"]
	if template != "" {
		expanded := p.Env.Expand(template)
		return strings.Split(expanded, "/")
	}
	return commonComponentPrefix(p.Model.PublicHeaders)
}

func commonComponentPrefix(paths [][]string) []string {
	if len(paths) == 0 {
		return nil
	}
	prefix := append([]string(nil), paths[0]...)
	for _, path := range paths[1:] {
		n := 0
		for n < len(prefix) && n < len(path) && prefix[n] == path[n] {
			n++
		}
		prefix = prefix[:n]
	}
	return prefix
}

// flatHeaderPath is where Xcode dropped the header: directly under the
// headers folder, under its own file name.
func flatHeaderPath(base string, header []string) string {
	return base + "/" + filepath.Base(header[len(header)-1])
}

// nestedHeaderPath is where the header belongs in the restored hierarchy.
func nestedHeaderPath(base string, header []string) string {
	return base + "/" + strings.Join(header, "/")
}

// RestoreHeaderHierarchy rebuilds the deep header layout in two phases.
// First it prunes the subdirectories left over from previous builds, but
// only those whose headers are present flat and about to be moved back in
// place; a subdirectory holding a header that was not rebuilt this pass is
// still live and must survive. Then it moves every multi-component header
// from the flat root to its nested location. Moving a single-component
// header is a no-op because source and destination coincide.
func RestoreHeaderHierarchy(cfg *Config, p *Project) error {
	top := headerHierarchyTop(cfg, p)

	builtHeadersPath, err := p.Env.Require("BUILT_PRODUCTS_DIR")
	if err != nil {
		return err
	}
	folder, err := p.Env.Require("PUBLIC_HEADERS_FOLDER_PATH")
	if err != nil {
		return err
	}
	builtHeadersPath += "/" + folder

	movable := p.MovableHeadersRelativeTo(top)
	if len(movable) == 0 {
		debugf("no headers below %s, nothing to restore\n", strings.Join(top, "/"))
		return nil
	}

	// Headers without a flat copy were already moved by an earlier pass;
	// their top-level subdirectory must not be pruned.
	var keep []string
	for _, header := range movable {
		if exists := fileExists(flatHeaderPath(builtHeadersPath, header)); !exists {
			keep = append(keep, header[0])
		}
	}
	if err := removeSubdirs(builtHeadersPath, keep); err != nil {
		return fmt.Errorf("pruning stale header dirs: %w", err)
	}

	for _, header := range movable {
		src := flatHeaderPath(builtHeadersPath, header)
		dst := nestedHeaderPath(builtHeadersPath, header)
		if err := moveFile(src, dst); err != nil {
			return fmt.Errorf("restoring header %s: %w", strings.Join(header, "/"), err)
		}
	}
	return nil
}
