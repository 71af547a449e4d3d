package blogengine

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinSessionSecretLength is the shortest session secret LoadConfig accepts.
const MinSessionSecretLength = 32

// SiteConfig holds all configuration for a blogengine site.
type SiteConfig struct {
	Name        string `env:"SITE_NAME"`        // Site name (default "Blog")
	URL         string `env:"SITE_URL"`         // Canonical URL (default "http://localhost:3000")
	Description string `env:"SITE_DESCRIPTION"` // Site description for RSS and meta tags
	Author      string `env:"SITE_AUTHOR"`

	Addr         string `env:"ADDR"`          // Listen address (default ":3000")
	DatabasePath string `env:"DATABASE_PATH"` // SQLite path (default "data/blog.db")

	SessionSecret string        `env:"SESSION_SECRET"` // Required: cookie signing secret
	SessionTTL    time.Duration `env:"SESSION_TTL"`    // Login lifetime (default 12h)
	CookieSecure  bool          `env:"COOKIE_SECURE"`  // Set true for HTTPS

	LoginAttempts int           `env:"LOGIN_ATTEMPTS"` // Failed logins per window per IP (default 5)
	LoginWindow   time.Duration `env:"LOGIN_WINDOW"`   // Limiter window (default 1m)
}

// LoadConfig reads SiteConfig from the environment and applies defaults.
func LoadConfig() (SiteConfig, error) {
	var cfg SiteConfig
	if err := env.Parse(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 12 * time.Hour
	}
	if c.LoginAttempts == 0 {
		c.LoginAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
}

func (c SiteConfig) validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("blogengine: SessionSecret is required")
	}
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("blogengine: SessionSecret must be at least %d bytes, got %d",
			MinSessionSecretLength, len(c.SessionSecret))
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}
