package settings

import (
	"time"

	"github.com/GriffinCanCode/notebridge/internal/editor"
)

// StorageKey is the key the settings document is persisted under
const StorageKey = "appSettings"

// Store is the key/value store settings and legacy keys live in
type Store interface {
	GetString(key string) (string, error)
	SetString(key, value string) error
	Remove(key string) error
}

// Device applies settings that change device behavior
type Device interface {
	SetSecureMode(enabled bool)      // Android FLAG_SECURE
	SetPrivacySnapshot(enabled bool) // Blurred app-switcher snapshot elsewhere
	PinQuickNote(enabled bool)
	SetFontScale(scale float64)
}

// Options configures a Service
type Options struct {
	Platform editor.Platform
	Defaults editor.Settings // Nil selects Defaults()
	Device   Device          // Nil disables device side effects
	Now      func() time.Time
}

type nopDevice struct{}

func (nopDevice) SetSecureMode(bool)      {}
func (nopDevice) SetPrivacySnapshot(bool) {}
func (nopDevice) PinQuickNote(bool)       {}
func (nopDevice) SetFontScale(float64)    {}
