package unifw

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// The artifact manifest lists every regular file of the embedded bundle
// with its BLAKE3 sum. It rides next to the bundle and lets downstream
// tooling (and 'unifw upload') verify an artifact without unpacking it.

type ManifestEntry struct {
	Path  string
	B3Sum string
}

func manifestPath(bundlePath string) string {
	return bundlePath + ".manifest"
}

// WriteManifest walks the embedded bundle and writes the manifest file.
// Symlinks are recorded by their target rather than hashed, directories by
// a trailing slash, matching what the bundle actually contains.
func WriteManifest(p *Project) error {
	root := p.LocalBuiltEmbeddedFWPath
	var lines []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		linfo, err := os.Lstat(path)
		if err != nil {
			return err
		}
		switch {
		case linfo.Mode()&os.ModeSymlink != 0:
			dest, err := os.Readlink(path)
			if err != nil {
				return err
			}
			lines = append(lines, "/"+rel+" -> "+dest)
		case linfo.IsDir():
			lines = append(lines, "/"+rel+"/")
		default:
			sum, err := b3sumFile(path)
			if err != nil {
				return err
			}
			lines = append(lines, "/"+rel+" "+sum)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(lines)

	f, err := os.Create(manifestPath(root))
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadManifest parses a manifest file back into entries. Directory and
// symlink lines carry an empty checksum.
func ReadManifest(bundlePath string) ([]ManifestEntry, error) {
	f, err := os.Open(manifestPath(bundlePath))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var entries []ManifestEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry := ManifestEntry{Path: line}
		if idx := strings.Index(line, " -> "); idx >= 0 {
			entry.Path = line[:idx]
		} else if idx := strings.LastIndexByte(line, ' '); idx >= 0 {
			entry.Path = line[:idx]
			entry.B3Sum = line[idx+1:]
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}
