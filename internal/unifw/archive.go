package unifw

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
)

// distExtensions maps the configured dist format to the tarball suffix.
var distExtensions = map[string]string{
	"zst": ".tar.zst",
	"gz":  ".tar.gz",
	"xz":  ".tar.xz",
}

// DistDir is where dist tarballs land: UNIFW_DIST_DIR or a dist/ folder
// next to the built products.
func DistDir(cfg *Config, env Env) string {
	if dir := cfg.Values["UNIFW_DIST_DIR"]; dir != "" {
		return dir
	}
	return filepath.Join(env.Get("BUILT_PRODUCTS_DIR"), "dist")
}

// DistArchiveName names the tarball after the product and configuration.
func DistArchiveName(env Env, format string) string {
	return env.Get("PRODUCT_NAME") + "-" + env.Get("CONFIGURATION") + "-universal" + distExtensions[format]
}

// CreateDistArchive packs the embedded framework into a compressed tarball
// for distribution. Symlinks are stored as symlinks; the embedded bundle
// relies on them to avoid duplicating resources.
func CreateDistArchive(cfg *Config, env Env, root, format string) (string, error) {
	if _, ok := distExtensions[format]; !ok {
		return "", fmt.Errorf("unknown dist format %q (want zst, gz or xz)", format)
	}

	if !dirExists(root) {
		return "", fmt.Errorf("embedded framework %s not built yet; run the build first", root)
	}

	distDir := DistDir(cfg, env)
	if err := ensureDir(distDir); err != nil {
		return "", err
	}
	outPath := filepath.Join(distDir, DistArchiveName(env, format))

	outFile, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create tarball file: %v", err)
	}

	var compressor io.WriteCloser
	switch format {
	case "zst":
		compressor, err = zstd.NewWriter(outFile)
	case "gz":
		compressor = pgzip.NewWriter(outFile)
	case "xz":
		compressor, err = xz.NewWriter(outFile)
	}
	if err != nil {
		outFile.Close()
		return "", fmt.Errorf("failed to create %s writer: %v", format, err)
	}

	tw := tar.NewWriter(compressor)

	bar := progressbar.DefaultBytes(treeSize(root), "packing")

	werr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(path)
			if err != nil {
				return fmt.Errorf("readlink %s: %w", path, err)
			}
		}

		hdr, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return err
		}
		if rel == "." {
			hdr.Name = "./"
			hdr.Mode = 0755
		} else {
			hdr.Name = rel
		}

		// Dist tarballs must unpack the same everywhere.
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "root", "root"

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if rel == "." || !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(io.MultiWriter(tw, bar), f)
		f.Close()
		return err
	})

	// Close in order so a truncated archive surfaces as an error.
	if err := tw.Close(); werr == nil {
		werr = err
	}
	if err := compressor.Close(); werr == nil {
		werr = err
	}
	if err := outFile.Close(); werr == nil {
		werr = err
	}
	if werr != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("failed to pack %s: %v", outPath, werr)
	}

	colArrow.Print("-> ")
	colSuccess.Printf("Dist archive created: %s\n", outPath)
	return outPath, nil
}

// treeSize sums the regular-file bytes under root for the progress bar.
func treeSize(root string) int64 {
	var total int64
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}

// ListDistArchives returns the dist tarballs present locally, sorted.
func ListDistArchives(distDir string) ([]string, error) {
	var files []string
	for _, ext := range distExtensions {
		matches, err := filepath.Glob(filepath.Join(distDir, "*"+ext))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}
