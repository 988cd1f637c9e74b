package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	AuthIssuer     string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL    string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience   string   `mapstructure:"AUTH_AUDIENCE"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	// LLM completion endpoint (warm handoffs, profile regeneration).
	LLMBaseURL string `mapstructure:"LLM_BASE_URL"`
	LLMModel   string `mapstructure:"LLM_MODEL"`
	LLMAPIKey  string `mapstructure:"OPENAI_API_KEY"`

	// Hosted speech-to-text endpoint for intake audio.
	STTBaseURL string `mapstructure:"STT_BASE_URL"`
	STTAPIKey  string `mapstructure:"STT_API_KEY"`
	STTModel   string `mapstructure:"STT_MODEL"`

	// Audio blob storage. When AUDIO_BUCKET is empty the in-memory store is
	// used, which only makes sense for development and tests.
	AudioBucket string `mapstructure:"AUDIO_BUCKET"`
	AWSRegion   string `mapstructure:"AWS_REGION"`

	FFprobePath string `mapstructure:"FFPROBE_PATH"`

	TranscribeTimeout time.Duration `mapstructure:"TRANSCRIBE_TIMEOUT"`
	OutboxInterval    time.Duration `mapstructure:"OUTBOX_INTERVAL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("LLM_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("LLM_MODEL", "gpt-4o")
	v.SetDefault("STT_MODEL", "whisper-1")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("FFPROBE_PATH", "ffprobe")
	v.SetDefault("TRANSCRIBE_TIMEOUT", "5m")
	v.SetDefault("OUTBOX_INTERVAL", "5s")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("LLM_BASE_URL")
	v.BindEnv("LLM_MODEL")
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("STT_BASE_URL")
	v.BindEnv("STT_API_KEY")
	v.BindEnv("STT_MODEL")
	v.BindEnv("AUDIO_BUCKET")
	v.BindEnv("AWS_REGION")
	v.BindEnv("FFPROBE_PATH")
	v.BindEnv("TRANSCRIBE_TIMEOUT")
	v.BindEnv("OUTBOX_INTERVAL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests are treated as admin.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In production a real
// JWT issuer and the hosted-vendor credentials must be set.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.AuthIssuer == "" {
			return fmt.Errorf("AUTH_ISSUER is required in production; refusing to start without authentication")
		}
		if c.LLMAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required in production")
		}
		if c.STTBaseURL == "" {
			return fmt.Errorf("STT_BASE_URL is required in production")
		}
		if c.AudioBucket == "" {
			return fmt.Errorf("AUDIO_BUCKET is required in production")
		}
	}
	if c.TranscribeTimeout <= 0 {
		return fmt.Errorf("TRANSCRIBE_TIMEOUT must be positive, got %s", c.TranscribeTimeout)
	}
	if c.OutboxInterval <= 0 {
		return fmt.Errorf("OUTBOX_INTERVAL must be positive, got %s", c.OutboxInterval)
	}
	return nil
}
