package model

import "time"

// Well-known settings keys.  The kiosk front end reads these through
// GET /api/settings to brand itself; unknown keys are passed through
// untouched.
const (
	SettingAppName       = "app_name"
	SettingLogoURL       = "logo_url"
	SettingTheme         = "theme"
	SettingDefaultLocale = "default_locale"
)

// Setting is a single key/value row in the `settings` table.  The
// settings surface is read-mostly: the public endpoint serves it from
// the Redis response cache and writes go through the staff API.
//
// Fields:
//  Key       – unique setting name.
//  Value     – setting value, free-form text.
//  UpdatedAt – timestamp of last update.
type Setting struct {
	Key       string    `json:"key"`        // settings.key
	Value     string    `json:"value"`      // settings.value
	UpdatedAt time.Time `json:"updated_at"` // settings.updated_at
}
