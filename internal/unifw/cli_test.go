package unifw

import "testing"

func TestReportWarnings(t *testing.T) {
	warnings := []string{
		"no headers in target MyLib were marked public",
		`"FRAMEWORK_SEARCH_PATHS" contains reference to 'DerivedData'.`,
	}

	t.Run("escalates when configured", func(t *testing.T) {
		cfg := &Config{Values: map[string]string{"UNIFW_FAIL_ON_WARNINGS": "1"}}
		if code := reportWarnings(cfg, warnings); code != 1 {
			t.Errorf("exit code = %d, want 1", code)
		}
	})

	t.Run("advisory when escalation is off", func(t *testing.T) {
		cfg := &Config{Values: map[string]string{"UNIFW_FAIL_ON_WARNINGS": "0"}}
		if code := reportWarnings(cfg, warnings); code != 0 {
			t.Errorf("exit code = %d, want 0", code)
		}
	})
}
