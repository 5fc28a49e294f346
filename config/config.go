package config

import (
	"regexp"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env  string `env:"ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	DatabaseURL   string `env:"DB_URL,required"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AccessTokenSecret  string `env:"ACCESS_TOKEN_SECRET,required"`
	RefreshTokenSecret string `env:"REFRESH_TOKEN_SECRET,required"`
	AccessTokenTTL     string `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL    string `env:"REFRESH_TOKEN_TTL" envDefault:"7d"`
	JWTIssuer          string `env:"JWT_ISSUER" envDefault:"psa-putzi"`
	JWTAudience        string `env:"JWT_AUDIENCE" envDefault:"psa-putzi-api"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`

	PasswordMinLength      int  `env:"PASSWORD_MIN_LENGTH" envDefault:"8"`
	PasswordRequireUpper   bool `env:"PASSWORD_REQUIRE_UPPER" envDefault:"true"`
	PasswordRequireLower   bool `env:"PASSWORD_REQUIRE_LOWER" envDefault:"true"`
	PasswordRequireDigit   bool `env:"PASSWORD_REQUIRE_DIGIT" envDefault:"true"`
	PasswordRequireSpecial bool `env:"PASSWORD_REQUIRE_SPECIAL" envDefault:"true"`

	LockoutMaxAttempts int    `env:"LOCKOUT_MAX_ATTEMPTS" envDefault:"5"`
	LockoutDuration    string `env:"LOCKOUT_DURATION" envDefault:"30m"`

	LoginRateWindow string `env:"LOGIN_RATE_WINDOW" envDefault:"15m"`
	LoginRateMax    int    `env:"LOGIN_RATE_MAX" envDefault:"10"`
	APIRateWindow   string `env:"API_RATE_WINDOW" envDefault:"1m"`
	APIRateMax      int    `env:"API_RATE_MAX" envDefault:"100"`

	ResetTokenTTL string `env:"RESET_TOKEN_TTL" envDefault:"1h"`
	MfaSetupTTL   string `env:"MFA_SETUP_TTL" envDefault:"15m"`

	TOTPIssuer        string `env:"TOTP_ISSUER" envDefault:"PSA Putzi"`
	TOTPSkewSteps     int    `env:"TOTP_SKEW_STEPS" envDefault:"1"`
	RecoveryCodeCount int    `env:"RECOVERY_CODE_COUNT" envDefault:"10"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var windowPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseWindow parses durations in the "<digits><unit>" grammar (s, m, h, d).
// Malformed or missing values fall back to the given default instead of
// erroring; a bad env var must never take the service down or, worse,
// silently shorten a token lifetime to zero.
func ParseWindow(s string, fallback time.Duration) time.Duration {
	m := windowPattern.FindStringSubmatch(s)
	if m == nil {
		return fallback
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return fallback
	}
	switch m[2] {
	case "s":
		return time.Duration(n) * time.Second
	case "m":
		return time.Duration(n) * time.Minute
	case "h":
		return time.Duration(n) * time.Hour
	case "d":
		return time.Duration(n) * 24 * time.Hour
	}
	return fallback
}

func (c *Config) AccessExpiry() time.Duration {
	return ParseWindow(c.AccessTokenTTL, 15*time.Minute)
}

func (c *Config) RefreshExpiry() time.Duration {
	return ParseWindow(c.RefreshTokenTTL, 7*24*time.Hour)
}

// AccessExpirySeconds is the expires_in value returned to clients.
func (c *Config) AccessExpirySeconds() int {
	return int(c.AccessExpiry() / time.Second)
}

func (c *Config) LockoutWindow() time.Duration {
	return ParseWindow(c.LockoutDuration, 30*time.Minute)
}

func (c *Config) LoginWindow() time.Duration {
	return ParseWindow(c.LoginRateWindow, 15*time.Minute)
}

func (c *Config) APIWindow() time.Duration {
	return ParseWindow(c.APIRateWindow, time.Minute)
}

func (c *Config) ResetExpiry() time.Duration {
	return ParseWindow(c.ResetTokenTTL, time.Hour)
}

func (c *Config) MfaSetupExpiry() time.Duration {
	return ParseWindow(c.MfaSetupTTL, 15*time.Minute)
}
