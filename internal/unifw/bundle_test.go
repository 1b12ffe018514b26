package unifw

import (
	"os"
	"path/filepath"
	"testing"
)

// bundleTestProject lays out an Xcode-shaped versioned framework with its
// contents under Versions/A and returns a project pointing at it.
func bundleTestProject(t *testing.T) (*Project, string) {
	t.Helper()
	builtProducts := t.TempDir()
	fwPath := filepath.Join(builtProducts, "MyLib.framework")
	versionDir := filepath.Join(fwPath, "Versions/A")
	for _, dir := range []string{
		filepath.Join(versionDir, "Headers"),
		filepath.Join(versionDir, "Resources/en.lproj"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, file := range []string{
		filepath.Join(versionDir, "MyLib"),
		filepath.Join(versionDir, "Headers/MyLib.h"),
		filepath.Join(versionDir, "Resources/Info.plist"),
		filepath.Join(versionDir, "Resources/icon.png"),
		filepath.Join(versionDir, "Resources/en.lproj/Localizable.strings"),
	} {
		if err := os.WriteFile(file, []byte("x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	p := &Project{
		Model:                    &ProjectModel{TargetName: "MyLib"},
		LocalBuiltFWPath:         fwPath,
		LocalBuiltEmbeddedFWPath: filepath.Join(builtProducts, "MyLib.embeddedframework"),
		Env: Env{
			"FRAMEWORK_VERSION": "A",
			"EXECUTABLE_NAME":   "MyLib",
			"WRAPPER_NAME":      "MyLib.framework",
		},
	}
	return p, fwPath
}

func assertSymlink(t *testing.T, link, wantTarget string) {
	t.Helper()
	got, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("Readlink(%s): %v", link, err)
	}
	if got != wantTarget {
		t.Errorf("%s points at %q, want %q", link, got, wantTarget)
	}
}

func TestAddFrameworkSymlinks(t *testing.T) {
	t.Run("creates the standard links", func(t *testing.T) {
		p, fwPath := bundleTestProject(t)
		if err := AddFrameworkSymlinks(p); err != nil {
			t.Fatal(err)
		}
		assertSymlink(t, filepath.Join(fwPath, "Versions/Current"), "A")
		assertSymlink(t, filepath.Join(fwPath, "Headers"), "Versions/Current/Headers")
		assertSymlink(t, filepath.Join(fwPath, "Resources"), "Versions/Current/Resources")
		assertSymlink(t, filepath.Join(fwPath, "MyLib"), "Versions/Current/MyLib")
	})

	t.Run("skips Headers link when the directory is absent", func(t *testing.T) {
		p, fwPath := bundleTestProject(t)
		if err := os.RemoveAll(filepath.Join(fwPath, "Versions/A/Headers")); err != nil {
			t.Fatal(err)
		}
		if err := AddFrameworkSymlinks(p); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Lstat(filepath.Join(fwPath, "Headers")); !os.IsNotExist(err) {
			t.Errorf("Headers link created without a Headers directory, err=%v", err)
		}
	})

	t.Run("existing links are left alone", func(t *testing.T) {
		p, fwPath := bundleTestProject(t)
		if err := AddFrameworkSymlinks(p); err != nil {
			t.Fatal(err)
		}
		if err := AddFrameworkSymlinks(p); err != nil {
			t.Fatalf("second run failed: %v", err)
		}
		assertSymlink(t, filepath.Join(fwPath, "Versions/Current"), "A")
	})

	t.Run("dangling executable target is an error", func(t *testing.T) {
		p, fwPath := bundleTestProject(t)
		if err := os.Remove(filepath.Join(fwPath, "Versions/A/MyLib")); err != nil {
			t.Fatal(err)
		}
		if err := AddFrameworkSymlinks(p); err == nil {
			t.Error("expected an error for a missing link target")
		}
	})
}

func TestBuildEmbeddedFramework(t *testing.T) {
	p, _ := bundleTestProject(t)
	if err := AddFrameworkSymlinks(p); err != nil {
		t.Fatal(err)
	}
	if err := BuildEmbeddedFramework(p); err != nil {
		t.Fatal(err)
	}

	embedded := p.LocalBuiltEmbeddedFWPath
	if !fileExists(filepath.Join(embedded, "MyLib.framework/Versions/A/MyLib")) {
		t.Error("framework executable missing from the embedded copy")
	}
	// The deep copy must preserve the bundle symlinks instead of
	// materializing their targets.
	assertSymlink(t, filepath.Join(embedded, "MyLib.framework/Versions/Current"), "A")
	assertSymlink(t, filepath.Join(embedded, "MyLib.framework/Resources"), "Versions/Current/Resources")

	assertSymlink(t, filepath.Join(embedded, "Resources/icon.png"),
		"../MyLib.framework/Resources/icon.png")
	if _, err := os.Lstat(filepath.Join(embedded, "Resources/Info.plist")); !os.IsNotExist(err) {
		t.Errorf("Info.plist was linked into shared resources, err=%v", err)
	}
	if _, err := os.Lstat(filepath.Join(embedded, "Resources/en.lproj")); !os.IsNotExist(err) {
		t.Errorf("en.lproj was linked into shared resources, err=%v", err)
	}

	// Rebuilding replaces the previous embedded bundle wholesale.
	marker := filepath.Join(embedded, "stale-file")
	if err := os.WriteFile(marker, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := BuildEmbeddedFramework(p); err != nil {
		t.Fatal(err)
	}
	if fileExists(marker) {
		t.Error("stale file survived the embedded bundle rebuild")
	}
}
