// Package session captures and replays a consistent browser identity.
// Platforms that gate on client fingerprints silently invalidate sessions
// replayed under a different environment, so the fingerprint captured at
// login is applied verbatim to every later context.
package session

import (
	"time"

	"github.com/offerscout/offerscout/internal/browser"
)

// Fingerprint is the client environment metadata captured alongside an
// authenticated session. Expiry is handled outside this package.
type Fingerprint struct {
	UserAgent  string    `json:"user_agent"`
	Locale     string    `json:"locale"`
	TimezoneID string    `json:"timezone_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// DefaultFingerprint returns a fixed, realistic desktop identity used when
// no captured fingerprint exists.
func DefaultFingerprint() Fingerprint {
	return Fingerprint{
		UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Locale:     "pt-BR",
		TimezoneID: "America/Sao_Paulo",
		CreatedAt:  time.Now(),
	}
}

// Apply merges the fingerprint into browser context options. A zero-value
// fingerprint is a no-op passthrough.
func (f Fingerprint) Apply(opts *browser.Options) {
	if opts == nil {
		return
	}
	if f.UserAgent != "" {
		opts.UserAgent = f.UserAgent
	}
	if f.Locale != "" {
		opts.Locale = f.Locale
	}
	if f.TimezoneID != "" {
		opts.TimezoneID = f.TimezoneID
	}
}
