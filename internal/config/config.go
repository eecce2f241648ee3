package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/foliohq/core/internal/pkg/mail"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort     = 3000
	defaultEnv      = "development"
	defaultDSN      = "root:password@tcp(127.0.0.1:3306)/folio?charset=utf8mb4&parseTime=True&loc=Local"
	defaultRedisURL = "redis://localhost:6379/0"
)

// AppConfig holds runtime configuration loaded from YAML with environment
// variable overrides.
type AppConfig struct {
	Port           int         `yaml:"port"`
	Env            string      `yaml:"env"` // "development" | "production"
	DSN            string      `yaml:"dsn"` // MySQL DSN
	RedisURL       string      `yaml:"redis_url"`
	SiteName       string      `yaml:"site_name"`
	SiteURL        string      `yaml:"site_url"` // public origin, used for absolute links in emails
	AllowedOrigins []string    `yaml:"allowed_origins"`
	JWTSecret      string      `yaml:"jwt_secret"`   // admin session signing
	TokenSecret    string      `yaml:"token_secret"` // subscriber capability tokens
	Mail           mail.Config `yaml:"mail"`
}

// Load reads the YAML config file (missing file is fine: defaults + env) and
// applies environment overrides.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{
		Port:     defaultPort,
		Env:      defaultEnv,
		DSN:      defaultDSN,
		RedisURL: defaultRedisURL,
		SiteName: "Folio",
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("FOLIO_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	setIfEnv(&cfg.Env, "FOLIO_ENV")
	setIfEnv(&cfg.DSN, "FOLIO_DSN")
	setIfEnv(&cfg.RedisURL, "FOLIO_REDIS_URL")
	setIfEnv(&cfg.SiteName, "FOLIO_SITE_NAME")
	setIfEnv(&cfg.SiteURL, "FOLIO_SITE_URL")
	setIfEnv(&cfg.JWTSecret, "FOLIO_JWT_SECRET")
	setIfEnv(&cfg.TokenSecret, "FOLIO_TOKEN_SECRET")
	setIfEnv(&cfg.Mail.Host, "FOLIO_MAIL_HOST")
	setIfEnv(&cfg.Mail.User, "FOLIO_MAIL_USER")
	setIfEnv(&cfg.Mail.Pass, "FOLIO_MAIL_PASS")
	setIfEnv(&cfg.Mail.From, "FOLIO_MAIL_FROM")
	setIfEnv(&cfg.Mail.ResendKey, "FOLIO_RESEND_KEY")
	if v := os.Getenv("FOLIO_MAIL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Mail.Port = p
		}
	}
	if v := os.Getenv("FOLIO_ALLOWED_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		cfg.AllowedOrigins = origins
	}
	if cfg.Mail.ResendKey != "" {
		cfg.Mail.UseResend = true
	}
}

func setIfEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *AppConfig) validate() error {
	if c.SiteURL != "" {
		u, err := url.Parse(c.SiteURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("site_url must be an absolute URL, got %q", c.SiteURL)
		}
		c.SiteURL = strings.TrimRight(c.SiteURL, "/")
	}
	if !c.IsDev() && c.TokenSecret == "" {
		return fmt.Errorf("token_secret is required in production")
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development")
}
