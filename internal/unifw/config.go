package unifw

import (
	"bufio"
	"os"
	"strings"
)

// Config struct
type Config struct {
	Values map[string]string
}

// LoadConfig reads /etc/unifw.conf and applies defaults
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	// Attempt to read the file
	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	}

	// Merge UNIFW_* and R2_* env overrides
	mergeEnvOverrides(cfg)

	applyDefaults(cfg)

	return cfg, nil
}

// Merge UNIFW_* and R2_* env overrides
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "UNIFW_") || strings.HasPrefix(env, "R2_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	defaults := map[string]string{
		// Restore the source-tree header hierarchy inside the framework.
		// Xcode flattens public headers; almost every consumer of a ported
		// library expects the original nesting.
		"UNIFW_DEEP_HEADER_HIERARCHY": "1",
		// Top of the public header hierarchy, relative to PROJECT_DIR.
		// May reference build settings with ${VAR} syntax. Empty means
		// autodetect via the longest common prefix of all public headers.
		"UNIFW_DEEP_HEADER_TOP": "${TARGET_NAME}",
		// Warn when DerivedData shows up in search paths (usually an
		// Xcode bug that must be removed by hand).
		"UNIFW_WARN_DERIVED_DATA": "1",
		// Warn when no header in the target is marked Public.
		"UNIFW_WARN_NO_PUBLIC_HEADERS": "1",
		// Escalate warnings to a failing exit code.
		"UNIFW_FAIL_ON_WARNINGS": "1",
		// Compression for 'unifw dist': zst, gz or xz.
		"UNIFW_DIST_FORMAT": "zst",
	}
	for k, v := range defaults {
		if _, ok := cfg.Values[k]; !ok {
			cfg.Values[k] = v
		}
	}
}

// Bool interprets a config value the way shell scripts do: "1", "true",
// "yes" and "on" enable, everything else disables.
func (c *Config) Bool(key string) bool {
	switch strings.ToLower(c.Values[key]) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
