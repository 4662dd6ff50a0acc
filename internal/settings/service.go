package settings

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/notebridge/internal/editor"
	"github.com/GriffinCanCode/notebridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/notebridge/internal/storage"
)

const day = 24 * time.Hour

// Service owns the app settings document
type Service struct {
	store    Store
	device   Device
	platform editor.Platform
	defaults editor.Settings
	now      func() time.Time
	logger   *zap.Logger

	mu      sync.RWMutex
	current editor.Settings
}

// NewService creates a settings service over store
func NewService(store Store, opts Options, logger *zap.Logger) *Service {
	s := &Service{
		store:    store,
		device:   opts.Device,
		platform: opts.Platform,
		defaults: opts.Defaults,
		now:      opts.Now,
		logger:   logging.OrNop(logger),
	}
	if s.device == nil {
		s.device = nopDevice{}
	}
	if s.defaults == nil {
		s.defaults = Defaults()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.current = s.defaults.Clone()
	return s
}

// Init loads the persisted settings over the defaults, writes the defaults
// when nothing is persisted yet, applies device side effects and runs the
// legacy key migration
func (s *Service) Init() (editor.Settings, error) {
	settings, found, err := s.load()
	if err != nil {
		return nil, err
	}
	if !found {
		if err := s.persist(settings); err != nil {
			return nil, err
		}
	}

	s.applyDevice(settings)

	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()

	if _, err := s.Migrate(); err != nil {
		return nil, err
	}
	return s.Get(), nil
}

// Load returns the persisted settings over the defaults without writing
// anything or touching the device
func (s *Service) Load() (editor.Settings, error) {
	settings, _, err := s.load()
	return settings, err
}

// load reads the persisted document over the defaults. found is false when
// nothing has been persisted yet.
func (s *Service) load() (editor.Settings, bool, error) {
	settings := s.defaults.Clone()

	raw, err := s.store.GetString(StorageKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return settings, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("load settings: %w", err)
	}

	var stored editor.Settings
	if err := sonic.UnmarshalString(raw, &stored); err != nil {
		s.logger.Warn("discarding unreadable settings", zap.Error(err))
		return settings, true, nil
	}
	return settings.Merge(stored), true, nil
}

func (s *Service) applyDevice(settings editor.Settings) {
	if b, _ := settings["notifNotes"].(bool); b {
		s.device.PinQuickNote(true)
	}
	if scale, ok := settings["fontScale"].(float64); ok && scale > 0 {
		s.device.SetFontScale(scale)
	}

	privacy, _ := settings["privacyScreen"].(bool)
	lockMode, _ := settings["appLockMode"].(string)
	enabled := privacy || lockMode == "background"

	if s.platform == editor.PlatformAndroid {
		s.device.SetSecureMode(enabled)
	} else {
		s.device.SetPrivacySnapshot(enabled)
	}
}

// Get returns a copy of the current settings
func (s *Service) Get() editor.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Set deep-merges patch into the settings and persists the result
func (s *Service) Set(patch editor.Settings) (editor.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Merge(patch)
	if err := s.persist(next); err != nil {
		return nil, err
	}
	s.current = next
	return next.Clone(), nil
}

// Toggle flips a boolean setting. Non-boolean settings are left alone and
// reported as false.
func (s *Service) Toggle(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.current[key].(bool)
	if !ok {
		return false, nil
	}
	next := s.current.Merge(editor.Settings{key: !v})
	if err := s.persist(next); err != nil {
		return false, err
	}
	s.current = next
	return !v, nil
}

// OnFirstLaunch schedules the first rating and backup prompts until the
// intro has been completed
func (s *Service) OnFirstLaunch() error {
	if done, _ := s.Get()["introCompleted"].(bool); done {
		return nil
	}
	now := s.now()
	_, err := s.Set(editor.Settings{
		"rateApp":               float64(now.Add(2 * day).UnixMilli()),
		"nextBackupRequestTime": float64(now.Add(3 * day).UnixMilli()),
	})
	return err
}

func (s *Service) persist(settings editor.Settings) error {
	raw, err := sonic.MarshalString(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.store.SetString(StorageKey, raw); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
