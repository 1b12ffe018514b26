package unifw

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestDistArchiveName(t *testing.T) {
	env := Env{"PRODUCT_NAME": "MyLib", "CONFIGURATION": "Release"}
	if got, want := DistArchiveName(env, "zst"), "MyLib-Release-universal.tar.zst"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := DistArchiveName(env, "xz"), "MyLib-Release-universal.tar.xz"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDistDir(t *testing.T) {
	env := Env{"BUILT_PRODUCTS_DIR": "/build/Release-iphoneos"}
	cfg := &Config{Values: map[string]string{}}
	if got, want := DistDir(cfg, env), "/build/Release-iphoneos/dist"; got != want {
		t.Errorf("default dist dir = %q, want %q", got, want)
	}
	cfg.Values["UNIFW_DIST_DIR"] = "/var/dist"
	if got := DistDir(cfg, env); got != "/var/dist" {
		t.Errorf("overridden dist dir = %q, want /var/dist", got)
	}
}

func TestCreateDistArchive(t *testing.T) {
	root := filepath.Join(t.TempDir(), "MyLib.embeddedframework")
	if err := os.MkdirAll(filepath.Join(root, "Resources"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "Resources/icon.png"), []byte("png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("Resources/icon.png", filepath.Join(root, "icon")); err != nil {
		t.Fatal(err)
	}

	distDir := t.TempDir()
	cfg := &Config{Values: map[string]string{"UNIFW_DIST_DIR": distDir}}
	env := Env{"PRODUCT_NAME": "MyLib", "CONFIGURATION": "Release"}

	outPath, err := CreateDistArchive(cfg, env, root, "zst")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(outPath) != "MyLib-Release-universal.tar.zst" {
		t.Errorf("unexpected archive name %s", outPath)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	seen := map[string]*tar.Header{}
	var iconData []byte
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		seen[hdr.Name] = hdr
		if hdr.Name == "Resources/icon.png" {
			if iconData, err = io.ReadAll(tr); err != nil {
				t.Fatal(err)
			}
		}
	}

	rootHdr, ok := seen["./"]
	if !ok {
		t.Fatal("root entry ./ missing from the archive")
	}
	if rootHdr.Mode&0o777 != 0o755 {
		t.Errorf("root mode = %o, want 0755", rootHdr.Mode&0o777)
	}
	if string(iconData) != "png-bytes" {
		t.Errorf("icon.png content = %q", iconData)
	}
	link, ok := seen["icon"]
	if !ok {
		t.Fatal("symlink entry missing from the archive")
	}
	if link.Typeflag != tar.TypeSymlink || link.Linkname != "Resources/icon.png" {
		t.Errorf("symlink stored as type %c -> %q", link.Typeflag, link.Linkname)
	}
	for name, hdr := range seen {
		if hdr.Uid != 0 || hdr.Gid != 0 || hdr.Uname != "root" || hdr.Gname != "root" {
			t.Errorf("%s has non-root ownership %d:%d %s:%s", name, hdr.Uid, hdr.Gid, hdr.Uname, hdr.Gname)
		}
	}

	listed, err := ListDistArchives(distDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0] != outPath {
		t.Errorf("ListDistArchives = %v, want [%s]", listed, outPath)
	}
}

func TestCreateDistArchiveErrors(t *testing.T) {
	cfg := &Config{Values: map[string]string{"UNIFW_DIST_DIR": t.TempDir()}}
	env := Env{"PRODUCT_NAME": "MyLib", "CONFIGURATION": "Release"}

	if _, err := CreateDistArchive(cfg, env, t.TempDir(), "lz4"); err == nil {
		t.Error("expected error for an unknown format")
	}
	missing := filepath.Join(t.TempDir(), "never-built")
	if _, err := CreateDistArchive(cfg, env, missing, "zst"); err == nil {
		t.Error("expected error when the embedded framework is missing")
	}
}
