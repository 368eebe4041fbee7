// Package config loads service configuration from the environment. All keys
// are prefixed TASKHIVE_, e.g. TASKHIVE_MONGO_URI.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries everything the api binary needs to start.
type Config struct {
	HTTPAddr      string
	MongoURI      string
	MongoDatabase string

	// Distinct secrets for the two token kinds.
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// SessionSecret encrypts the client-side profile cookie. Issuing and
	// decoding share this single value.
	SessionSecret string

	CookieSecure bool
	RateBurst    int
	RatePerSec   int
	MaxBodyBytes int64
}

// Load reads the environment with development-grade defaults. An empty
// MongoURI selects the in-memory stores.
func Load() Config {
	v := viper.New()
	v.SetEnvPrefix("taskhive")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_database", "taskhive")
	v.SetDefault("access_secret", "dev-access-secret")
	v.SetDefault("refresh_secret", "dev-refresh-secret")
	v.SetDefault("access_ttl", 15*time.Minute)
	v.SetDefault("refresh_ttl", 240*time.Hour)
	v.SetDefault("session_secret", "dev-session-secret")
	v.SetDefault("cookie_secure", true)
	v.SetDefault("rate_burst", 20)
	v.SetDefault("rate_per_sec", 10)
	v.SetDefault("max_body_bytes", int64(16<<10))

	return Config{
		HTTPAddr:      v.GetString("http_addr"),
		MongoURI:      v.GetString("mongo_uri"),
		MongoDatabase: v.GetString("mongo_database"),
		AccessSecret:  v.GetString("access_secret"),
		RefreshSecret: v.GetString("refresh_secret"),
		AccessTTL:     v.GetDuration("access_ttl"),
		RefreshTTL:    v.GetDuration("refresh_ttl"),
		SessionSecret: v.GetString("session_secret"),
		CookieSecure:  v.GetBool("cookie_secure"),
		RateBurst:     v.GetInt("rate_burst"),
		RatePerSec:    v.GetInt("rate_per_sec"),
		MaxBodyBytes:  v.GetInt64("max_body_bytes"),
	}
}
