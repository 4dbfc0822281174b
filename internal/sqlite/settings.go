// Generic settings key-value surface. The CLI records the gateway's
// last observed state here so availability stays observable through the
// store without the gateway ever writing to it.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sietch-labs/sietch/pkg/types"
)

// SetSetting upserts a settings key.
func (b *Backend) SetSetting(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkAttached(); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: empty setting key", types.ErrInvalidData)
	}

	_, err := b.db.Exec(
		`INSERT INTO settings (setting_key, setting_value, updated_at)
         VALUES (?, ?, ?)
         ON CONFLICT (setting_key) DO UPDATE SET
           setting_value = excluded.setting_value,
           updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

// GetSetting returns a settings value, or ErrNotFound.
func (b *Backend) GetSetting(key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkAttached(); err != nil {
		return "", err
	}

	var value string
	err := b.db.QueryRow(
		"SELECT setting_value FROM settings WHERE setting_key = ?", key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: setting %q", types.ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("getting setting %q: %w", key, err)
	}
	return value, nil
}
