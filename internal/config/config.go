package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	AppEnv      string
	DatabaseURL string
	SentryDSN   string

	JWTSecret string
	TokenTTL  time.Duration

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	BcryptCost         int
	SeedData           bool
	RunMigrations      bool
	CORSAllowedOrigins []string
}

type Options struct {
	LoadDotEnv bool
}

// Load reads configuration from the environment (and .env when asked).
func Load(options Options) (Config, error) {
	if options.LoadDotEnv {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("JWT_EXPIRATION_MS", 86400000)
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME_MINUTES", 10)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("SEED_DATA", true)
	v.SetDefault("RUN_MIGRATIONS_ON_STARTUP", true)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	cfg := Config{
		Port:               strings.TrimSpace(v.GetString("PORT")),
		AppEnv:             strings.TrimSpace(v.GetString("APP_ENV")),
		DatabaseURL:        strings.TrimSpace(v.GetString("DATABASE_URL")),
		SentryDSN:          strings.TrimSpace(v.GetString("SENTRY_DSN")),
		JWTSecret:          strings.TrimSpace(v.GetString("JWT_SECRET")),
		TokenTTL:           time.Duration(positiveInt(v, "JWT_EXPIRATION_MS", 86400000)) * time.Millisecond,
		DBMaxOpenConns:     positiveInt(v, "DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:     positiveInt(v, "DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime:  time.Duration(positiveInt(v, "DB_CONN_MAX_LIFETIME_MINUTES", 30)) * time.Minute,
		DBConnMaxIdleTime:  time.Duration(positiveInt(v, "DB_CONN_MAX_IDLE_TIME_MINUTES", 10)) * time.Minute,
		BcryptCost:         positiveInt(v, "BCRYPT_COST", 10),
		SeedData:           v.GetBool("SEED_DATA"),
		RunMigrations:      v.GetBool("RUN_MIGRATIONS_ON_STARTUP"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_MISSING").Errorf("missing required env: DATABASE_URL")
	}
	if c.JWTSecret == "" {
		return oops.Code("CONFIG_MISSING").Errorf("missing required env: JWT_SECRET")
	}
	return nil
}

func positiveInt(v *viper.Viper, key string, fallback int) int {
	value := v.GetInt(key)
	if value <= 0 {
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
