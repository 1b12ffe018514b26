package unifw

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

func ensureDir(path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}

func ensureParentDir(path string) error {
	return ensureDir(filepath.Dir(path))
}

// removePath removes a file, symlink or directory tree. Missing paths are
// not an error.
func removePath(path string) error {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.RemoveAll(path)
}

// removeSubdirs removes every directory directly under path whose name is
// not in keep. Plain files are left alone.
func removeSubdirs(path string, keep []string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	keepSet := make(map[string]bool, len(keep))
	for _, name := range keep {
		keepSet[name] = true
	}
	for _, entry := range entries {
		if !entry.IsDir() || keepSet[entry.Name()] {
			continue
		}
		full := filepath.Join(path, entry.Name())
		colArrow.Print("-> ")
		colInfo.Println("Remove " + full)
		if err := os.RemoveAll(full); err != nil {
			return err
		}
	}
	return nil
}

// moveFile moves a regular file, creating parent directories and replacing
// any existing destination. Moving a file onto itself or moving a path that
// is not a regular file is a no-op.
func moveFile(src, dst string) error {
	if src == dst {
		return nil
	}
	info, err := os.Stat(src)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	colArrow.Print("-> ")
	colInfo.Println("Move " + src + " to " + dst)
	if err := ensureParentDir(dst); err != nil {
		return err
	}
	if err := removePath(dst); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

// copyTree deep-copies src to dst, replacing any previous dst. Symlinks are
// copied verbatim (never resolved) so the Versions/Current indirection of a
// framework bundle survives the copy. File modes and modification times are
// preserved because the staleness checks depend on mtimes.
func copyTree(src, dst string) error {
	if err := removePath(dst); err != nil {
		return err
	}
	if err := ensureParentDir(dst); err != nil {
		return err
	}
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		// Walk reports symlinks through Lstat-like info only for the
		// entries themselves; re-Lstat to be explicit.
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
			return os.Symlink(dest, target)
		case linfo.IsDir():
			return os.MkdirAll(target, linfo.Mode().Perm())
		default:
			if err := copyFileContents(path, target, linfo.Mode().Perm()); err != nil {
				return err
			}
			mtime := linfo.ModTime()
			ts := []unix.Timespec{
				unix.NsecToTimespec(mtime.UnixNano()),
				unix.NsecToTimespec(mtime.UnixNano()),
			}
			return unix.UtimesNanoAt(unix.AT_FDCWD, target, ts, 0)
		}
	})
}

func copyFileContents(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// attemptSymlink creates linkPath pointing at linkTo (a path relative to
// linkPath's directory). The target must resolve to an existing path; a
// dangling link here means the bundle layout is broken, so fail loudly
// instead of skipping. An already existing linkPath is left untouched.
func attemptSymlink(linkPath, linkTo string) error {
	resolved := linkTo
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(linkPath), linkTo)
	}
	if _, err := os.Stat(resolved); err != nil {
		return fmt.Errorf("symlink target %s does not exist: %w", resolved, err)
	}
	if _, err := os.Lstat(linkPath); err == nil {
		return nil
	}
	colArrow.Print("-> ")
	colInfo.Println("Symlink " + linkPath + " -> " + linkTo)
	return os.Symlink(linkTo, linkPath)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// mtimeOf returns the modification time of path in unix nanoseconds, or an
// error when the path is missing or unreadable.
func mtimeOf(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.ModTime().UnixNano(), nil
}
