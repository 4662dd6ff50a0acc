package settings

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/notebridge/internal/editor"
	"github.com/GriffinCanCode/notebridge/internal/storage"
)

// LegacyKeys are the flat keys older releases stored outside appSettings
var LegacyKeys = []string{
	"introCompleted",
	"askForRating",
	"askForBackup",
	"backupDate",
	"isUserEmailConfirmed",
	"userHasSavedRecoveryKey",
	"accentColor",
	"theme",
	"backupStorageDir",
	"dontShowCompleteSheet",
}

// Migrate moves the legacy keys into the settings document and removes
// them. Every key is read before the document is committed and removed
// only after, so a failed run leaves the legacy keys for the next launch.
// It runs once: the migrated flag makes later calls no-ops. It reports
// whether anything was moved.
func (s *Service) Migrate() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if done, _ := s.current["migrated"].(bool); done {
		return false, nil
	}

	m := &migration{store: s.store, logger: s.logger, patch: editor.Settings{}}

	if raw, ok, err := m.take("introCompleted"); err != nil {
		return false, err
	} else if !ok || raw == "" {
		s.logger.Debug("no legacy settings to migrate")
		if err := s.commit(editor.Settings{"migrated": true}); err != nil {
			return false, err
		}
		m.cleanup()
		return false, nil
	}
	m.patch["introCompleted"] = true

	steps := []func() error{
		m.askForRating,
		m.askForBackup,
		m.backupDate,
		m.emailConfirmed,
		m.recoveryKey,
		m.accentColor,
		m.theme,
		m.backupDir,
		m.completeSheet,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return false, err
		}
	}

	m.patch["migrated"] = true
	if err := s.commit(m.patch); err != nil {
		return false, err
	}
	m.cleanup()
	s.logger.Info("migrated legacy settings", zap.Int("keys", len(m.taken)))
	return true, nil
}

// commit merges patch and persists; the caller holds mu
func (s *Service) commit(patch editor.Settings) error {
	next := s.current.Merge(patch)
	if err := s.persist(next); err != nil {
		return err
	}
	s.current = next
	return nil
}

type migration struct {
	store  Store
	logger *zap.Logger
	patch  editor.Settings
	taken  []string
}

// take reads a legacy key and marks it for cleanup
func (m *migration) take(key string) (string, bool, error) {
	value, err := m.store.GetString(key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read legacy %s: %w", key, err)
	}
	m.taken = append(m.taken, key)
	return value, true, nil
}

// cleanup removes the keys read so far. It runs after the commit, where
// the migrated flag already prevents a second run, so failures are only
// logged.
func (m *migration) cleanup() {
	for _, key := range m.taken {
		if err := m.store.Remove(key); err != nil {
			m.logger.Warn("failed to remove legacy key", zap.String("key", key), zap.Error(err))
			continue
		}
		m.logger.Debug("migrated legacy key", zap.String("key", key))
	}
}

// takeJSON reads and decodes a legacy key. Undecodable values are
// logged and dropped.
func (m *migration) takeJSON(key string) (map[string]any, bool, error) {
	raw, ok, err := m.take(key)
	if err != nil || !ok {
		return nil, false, err
	}
	var v map[string]any
	if err := sonic.UnmarshalString(raw, &v); err != nil {
		m.logger.Warn("dropping unreadable legacy value", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	return v, true, nil
}

func (m *migration) setTheme(key string, value any) {
	theme, _ := m.patch["theme"].(map[string]any)
	if theme == nil {
		theme = map[string]any{}
		m.patch["theme"] = theme
	}
	theme[key] = value
}

func (m *migration) askForRating() error {
	raw, ok, err := m.take("askForRating")
	if err != nil || !ok {
		return err
	}
	if raw == "completed" || raw == "never" {
		m.patch["rateApp"] = false
		return nil
	}
	var v map[string]any
	if err := sonic.UnmarshalString(raw, &v); err != nil {
		m.logger.Warn("dropping unreadable legacy value", zap.String("key", "askForRating"), zap.Error(err))
		return nil
	}
	if ts, ok := v["timestamp"]; ok {
		m.patch["rateApp"] = ts
	}
	return nil
}

func (m *migration) askForBackup() error {
	v, ok, err := m.takeJSON("askForBackup")
	if err != nil || !ok {
		return err
	}
	if ts, ok := v["timestamp"]; ok {
		m.patch["nextBackupRequestTime"] = ts
	}
	return nil
}

func (m *migration) backupDate() error {
	raw, ok, err := m.take("backupDate")
	if err != nil || !ok {
		return err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		m.logger.Warn("dropping unreadable legacy value", zap.String("key", "backupDate"), zap.Error(err))
		return nil
	}
	m.patch["lastBackupDate"] = float64(ms)
	return nil
}

func (m *migration) emailConfirmed() error {
	raw, ok, err := m.take("isUserEmailConfirmed")
	if err != nil || !ok {
		return err
	}
	switch raw {
	case "yes":
		m.patch["userEmailConfirmed"] = true
	case "no":
		m.patch["userEmailConfirmed"] = false
	}
	return nil
}

func (m *migration) recoveryKey() error {
	raw, ok, err := m.take("userHasSavedRecoveryKey")
	if err != nil || !ok {
		return err
	}
	if raw != "" {
		m.patch["recoveryKeySaved"] = true
	}
	return nil
}

func (m *migration) accentColor() error {
	raw, ok, err := m.take("accentColor")
	if err != nil || !ok {
		return err
	}
	if raw != "" {
		m.setTheme("accent", raw)
	}
	return nil
}

func (m *migration) theme() error {
	v, ok, err := m.takeJSON("theme")
	if err != nil || !ok {
		return err
	}
	if night, _ := v["night"].(bool); night {
		m.setTheme("dark", true)
	}
	return nil
}

func (m *migration) backupDir() error {
	raw, ok, err := m.take("backupStorageDir")
	if err != nil || !ok {
		return err
	}
	var dir any
	if err := sonic.UnmarshalString(raw, &dir); err != nil {
		m.logger.Warn("dropping unreadable legacy value", zap.String("key", "backupStorageDir"), zap.Error(err))
		return nil
	}
	m.patch["backupDirectoryAndroid"] = dir
	return nil
}

func (m *migration) completeSheet() error {
	raw, ok, err := m.take("dontShowCompleteSheet")
	if err != nil || !ok {
		return err
	}
	if raw != "" {
		m.patch["showBackupCompleteSheet"] = false
	}
	return nil
}
