package utils

import (
	"os"
	"strconv"
	"time"
)

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("PHIMHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("PHIMHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "phimhub"
	}

	ttl := 24 * time.Hour
	if hours := envInt("PHIMHUB_JWT_TTL_HOURS", 0); hours > 0 {
		ttl = time.Duration(hours) * time.Hour
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: ttl,
	}
}

// ProviderConfig carries the upstream content API endpoints. Each has a
// dev default pointing at the public instance.
type ProviderConfig struct {
	KKPhimBaseURL string
	OPhimBaseURL  string
	NguonCBaseURL string
	TMDBAPIKey    string
	FetchTimeout  time.Duration
}

func LoadProviderConfig() ProviderConfig {
	cfg := ProviderConfig{
		KKPhimBaseURL: envOr("PHIMHUB_KKPHIM_URL", "https://phimapi.com"),
		OPhimBaseURL:  envOr("PHIMHUB_OPHIM_URL", "https://ophim1.com"),
		NguonCBaseURL: envOr("PHIMHUB_NGUONC_URL", "https://phim.nguonc.com"),
		TMDBAPIKey:    os.Getenv("PHIMHUB_TMDB_API_KEY"),
		FetchTimeout:  8 * time.Second,
	}
	if secs := envInt("PHIMHUB_PROVIDER_TIMEOUT_SECONDS", 0); secs > 0 {
		cfg.FetchTimeout = time.Duration(secs) * time.Second
	}
	return cfg
}

// PlayerConfig holds the product-tuning values of the playback core.
// These are observed defaults, not invariants.
type PlayerConfig struct {
	ControlsHideDelay   time.Duration // auto-hide of the controls overlay
	BrightnessDragK     float64       // vertical drag pixels per full brightness range
	SyncThresholdMillis int64         // min playback-position delta between progress reports
}

func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		ControlsHideDelay:   4 * time.Second,
		BrightnessDragK:     3000,
		SyncThresholdMillis: 5000,
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
