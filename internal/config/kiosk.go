package config

import "time"

// KioskConfig holds the settings of one kiosk terminal: where the
// portal backend lives, the kiosk's identity (which keys its durable
// session storage), and how long a stored session may outlive the
// process before Redis forgets it on its own.
type KioskConfig struct {
	APIBaseURL string        // KIOSK_API_URL (no trailing slash)
	KioskID    string        // KIOSK_ID, unique per physical device
	SessionTTL time.Duration // KIOSK_SESSION_TTL for the Redis session key
}

// LoadKioskConfig reads the kiosk settings from the environment with
// defaults suitable for a local setup.
func LoadKioskConfig() KioskConfig {
	return KioskConfig{
		APIBaseURL: envStr("KIOSK_API_URL", "http://localhost:8080"),
		KioskID:    envStr("KIOSK_ID", "kiosk-1"),
		SessionTTL: envDur("KIOSK_SESSION_TTL", 12*time.Hour),
	}
}
