package repository

import (
	"context"
	"database/sql"

	"github.com/openvisit/visitor-portal/internal/model"
)

// SettingsRepo provides data access to the `settings` key/value table.
// The public settings endpoint serves this map through the Redis
// response cache, so reads here happen only on cache misses.
type SettingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo returns a new SettingsRepo bound to the given database.
func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

// All returns every setting as a key -> value map.  Missing well-known
// keys are filled with defaults so the kiosk always has something to
// render.
func (r *SettingsRepo) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+"`key`"+`, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{
		model.SettingAppName:       "Visitor Portal",
		model.SettingLogoURL:       "",
		model.SettingTheme:         "light",
		model.SettingDefaultLocale: "en",
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the stored setting rows with their update timestamps,
// for the admin settings screen.  Unlike All it does not materialize
// defaults; only rows that exist in the table appear.
func (r *SettingsRepo) List(ctx context.Context) ([]model.Setting, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+"`key`"+`, value, updated_at FROM settings ORDER BY `+"`key`")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Setting
	for rows.Next() {
		var s model.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Set upserts one setting.
func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	const q = `INSERT INTO settings (` + "`key`" + `, value) VALUES (?, ?)
			   ON DUPLICATE KEY UPDATE value = VALUES(value)`
	_, err := r.db.ExecContext(ctx, q, key, value)
	return err
}
