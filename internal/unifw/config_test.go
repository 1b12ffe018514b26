package unifw

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Run("file values with quotes and comments", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "unifw.conf")
		conf := `# build settings
UNIFW_DIST_FORMAT = "xz"
UNIFW_DIST_DIR='/var/dist'

bogus line without equals
`
		if err := os.WriteFile(path, []byte(conf), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if got := cfg.Values["UNIFW_DIST_FORMAT"]; got != "xz" {
			t.Errorf("UNIFW_DIST_FORMAT = %q, want xz", got)
		}
		if got := cfg.Values["UNIFW_DIST_DIR"]; got != "/var/dist" {
			t.Errorf("UNIFW_DIST_DIR = %q, want /var/dist", got)
		}
	})

	t.Run("missing file still yields defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.conf"))
		if err != nil {
			t.Fatal(err)
		}
		if got := cfg.Values["UNIFW_DIST_FORMAT"]; got != "zst" {
			t.Errorf("UNIFW_DIST_FORMAT default = %q, want zst", got)
		}
		if !cfg.Bool("UNIFW_DEEP_HEADER_HIERARCHY") {
			t.Error("UNIFW_DEEP_HEADER_HIERARCHY should default to enabled")
		}
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "unifw.conf")
		if err := os.WriteFile(path, []byte("UNIFW_DIST_FORMAT=gz\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("UNIFW_DIST_FORMAT", "xz")
		t.Setenv("R2_BUCKET", "artifacts")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if got := cfg.Values["UNIFW_DIST_FORMAT"]; got != "xz" {
			t.Errorf("UNIFW_DIST_FORMAT = %q, want env override xz", got)
		}
		if got := cfg.Values["R2_BUCKET"]; got != "artifacts" {
			t.Errorf("R2_BUCKET = %q, want artifacts", got)
		}
	})
}

func TestConfigBool(t *testing.T) {
	cfg := &Config{Values: map[string]string{
		"a": "1", "b": "TRUE", "c": "yes", "d": "on",
		"e": "0", "f": "no", "g": "",
	}}
	for _, key := range []string{"a", "b", "c", "d"} {
		if !cfg.Bool(key) {
			t.Errorf("Bool(%q) = false, want true", key)
		}
	}
	for _, key := range []string{"e", "f", "g", "absent"} {
		if cfg.Bool(key) {
			t.Errorf("Bool(%q) = true, want false", key)
		}
	}
}
