package settingsstore

import (
	"time"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database/settings"
)

// Value sources reported alongside effective settings.
const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
)

// SettingsStore resolves runtime settings. Priority: database > environment.
// The environment layer is the viper-loaded config, which already carries
// the built-in defaults.
type SettingsStore struct {
	repo      *settings.Repository
	reconcile config.Reconcile
	now       func() time.Time
}

func New(repo *settings.Repository, reconcile config.Reconcile) *SettingsStore {
	return &SettingsStore{repo: repo, reconcile: reconcile, now: time.Now}
}

// lookup returns the stored override for key, if any.
func (s *SettingsStore) lookup(key string) (string, bool) {
	setting, err := s.repo.GetSetting(key)
	if err != nil || setting.Value == "" {
		return "", false
	}
	return setting.Value, true
}

func (s *SettingsStore) clear(keys ...string) error {
	for _, key := range keys {
		if err := s.repo.DeleteSetting(key); err != nil {
			return err
		}
	}
	return nil
}
