package accounts

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// EnvConfig is the environment-backed Config implementation. Signing
// secrets are required; everything else has workable defaults. SMTP
// settings may be absent, which degrades email delivery only.
type EnvConfig struct {
	SigningKey          string `env:"ACCOUNTS_JWT_SECRET" env-required:"true"`
	RefreshSigningKey   string `env:"ACCOUNTS_JWT_REFRESH_SECRET" env-required:"true"`
	TokenExpiration     int    `env:"ACCOUNTS_TOKEN_EXPIRATION_HOURS" env-default:"168"`
	RefreshExpiration   int    `env:"ACCOUNTS_REFRESH_EXPIRATION_HOURS" env-default:"720"`
	BcryptCost          int    `env:"ACCOUNTS_BCRYPT_COST" env-default:"12"`
	LockoutThreshold    int    `env:"ACCOUNTS_MAX_LOGIN_ATTEMPTS" env-default:"5"`
	LockoutMinutes      int    `env:"ACCOUNTS_LOCKOUT_MINUTES" env-default:"15"`
	ResetTokenMinutes   int    `env:"ACCOUNTS_RESET_TOKEN_MINUTES" env-default:"15"`
	Issuer              string `env:"ACCOUNTS_ISSUER" env-default:"accounts"`
	FrontendURL         string `env:"ACCOUNTS_FRONTEND_URL" env-default:"http://localhost:3000"`
	CookieName          string `env:"ACCOUNTS_COOKIE_NAME" env-default:"token"`
	Environment         string `env:"ACCOUNTS_ENV" env-default:"development"`
	SMTPHost            string `env:"ACCOUNTS_SMTP_HOST"`
	SMTPPort            int    `env:"ACCOUNTS_SMTP_PORT" env-default:"587"`
	SMTPTLS             bool   `env:"ACCOUNTS_SMTP_TLS" env-default:"true"`
	SMTPUsername        string `env:"ACCOUNTS_SMTP_USERNAME"`
	SMTPPassword        string `env:"ACCOUNTS_SMTP_PASSWORD"`
	SMTPFrom            string `env:"ACCOUNTS_EMAIL_FROM"`
}

// LoadConfig reads configuration from the environment and applies the
// configured bcrypt work factor.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	SetBcryptCost(cfg.BcryptCost)
	return cfg, nil
}

func (c *EnvConfig) GetSigningKey() string        { return c.SigningKey }
func (c *EnvConfig) GetRefreshSigningKey() string { return c.RefreshSigningKey }
func (c *EnvConfig) GetTokenExpiration() int      { return c.TokenExpiration }
func (c *EnvConfig) GetRefreshTokenExpiration() int {
	return c.RefreshExpiration
}
func (c *EnvConfig) GetBcryptCost() int       { return c.BcryptCost }
func (c *EnvConfig) GetLockoutThreshold() int { return c.LockoutThreshold }
func (c *EnvConfig) GetLockoutDuration() time.Duration {
	return time.Duration(c.LockoutMinutes) * time.Minute
}
func (c *EnvConfig) GetResetTokenDuration() time.Duration {
	return time.Duration(c.ResetTokenMinutes) * time.Minute
}
func (c *EnvConfig) GetIssuer() string      { return c.Issuer }
func (c *EnvConfig) GetFrontendURL() string { return c.FrontendURL }
func (c *EnvConfig) GetCookieName() string  { return c.CookieName }
func (c *EnvConfig) IsProduction() bool     { return c.Environment == "production" }

// SMTP returns the mail provider settings, which may be unconfigured.
func (c *EnvConfig) SMTP() SMTPConfig {
	return SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		TLS:      c.SMTPTLS,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	}
}

var _ Config = (*EnvConfig)(nil)
