package settings

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"

	"github.com/GriffinCanCode/notebridge/internal/editor"
)

// Defaults returns the built-in app settings
func Defaults() editor.Settings {
	return editor.Settings{
		"migrated":                false,
		"introCompleted":          false,
		"rateApp":                 false,
		"nextBackupRequestTime":   nil,
		"lastBackupDate":          nil,
		"userEmailConfirmed":      false,
		"recoveryKeySaved":        false,
		"backupDirectoryAndroid":  nil,
		"showBackupCompleteSheet": true,
		"privacyScreen":           false,
		"appLockMode":             "none",
		"notifNotes":              false,
		"fontScale":               float64(1),
		"theme": map[string]any{
			"accent": "#008837",
			"dark":   false,
		},
	}
}

// LoadDefaults reads a YAML file and deep-merges it over Defaults()
func LoadDefaults(path string) (editor.Settings, error) {
	defaults := Defaults()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings defaults: %w", err)
	}

	var overlay map[string]any
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse settings defaults: %w", err)
	}

	normalized, err := normalize(overlay)
	if err != nil {
		return nil, err
	}
	return defaults.Merge(normalized), nil
}

// normalize gives decoded values the shapes a JSON round trip produces:
// float64 numbers and map[string]any objects
func normalize(v any) (editor.Settings, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize settings: %w", err)
	}
	var out editor.Settings
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize settings: %w", err)
	}
	return out, nil
}
