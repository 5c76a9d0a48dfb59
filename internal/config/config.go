// Package config reads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every setting the service reads at startup.
type Config struct {
	MongoURI      string
	MongoDatabase string

	// JWTKeys maps kid to HMAC secret; JWTActiveKid signs new tokens.
	JWTKeys      map[string]string
	JWTActiveKid string

	HTTPPort string
	GRPCPort string
	TLSCert  string
	TLSKey   string

	AppURL       string
	CookieSecure bool
	CORSOrigins  []string
	RateLimitRPM int

	SMTP   SMTPConfig
	Google GoogleConfig
}

// SMTPConfig configures outgoing mail. An empty Host disables sending.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      bool
}

// Enabled reports whether enough is set to send mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.Username != "" && s.Password != ""
}

// GoogleConfig configures Google sign-in. Empty credentials disable it.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Load reads an optional .env file then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (*Config, error) {
	c := &Config{
		MongoURI:      getenv("MONGODB_URI"),
		MongoDatabase: orDefault(getenv("MONGODB_DATABASE"), "mentorship"),
		JWTActiveKid:  getenv("JWT_ACTIVE_KID"),
		HTTPPort:      orDefault(getenv("PORT"), "8080"),
		GRPCPort:      orDefault(getenv("GRPC_PORT"), "50051"),
		TLSCert:       getenv("TLS_CERT"),
		TLSKey:        getenv("TLS_KEY"),
		AppURL:        strings.TrimRight(orDefault(getenv("APP_URL"), "http://localhost:3000"), "/"),
		CookieSecure:  getenv("COOKIE_SECURE") == "true",
		CORSOrigins:   splitList(getenv("CORS_ORIGINS")),
		RateLimitRPM:  10,
		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST"),
			Port:     587,
			Username: getenv("SMTP_USER"),
			Password: getenv("SMTP_PASS"),
			From:     getenv("SMTP_FROM"),
			TLS:      getenv("SMTP_SECURE") == "true",
		},
		Google: GoogleConfig{
			ClientID:     getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  getenv("GOOGLE_REDIRECT_URI"),
		},
	}

	if c.MongoURI == "" {
		return nil, fmt.Errorf("MONGODB_URI must be set")
	}

	// JWT_KEYS (kid:secret,kid2:secret2) enables rotation; JWT_SECRET is the
	// single-key fallback.
	if keys := getenv("JWT_KEYS"); keys != "" {
		parsed, err := parseKeys(keys)
		if err != nil {
			return nil, err
		}
		c.JWTKeys = parsed
		if c.JWTActiveKid == "" {
			return nil, fmt.Errorf("JWT_ACTIVE_KID must be set with JWT_KEYS")
		}
		if _, ok := parsed[c.JWTActiveKid]; !ok {
			return nil, fmt.Errorf("JWT_ACTIVE_KID %q is not in JWT_KEYS", c.JWTActiveKid)
		}
	} else if secret := getenv("JWT_SECRET"); secret != "" {
		c.JWTActiveKid = "default"
		c.JWTKeys = map[string]string{c.JWTActiveKid: secret}
	} else {
		return nil, fmt.Errorf("either JWT_SECRET or JWT_KEYS must be set")
	}

	if v := getenv("RATE_LIMIT_RPM"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPM %q", v)
		}
		c.RateLimitRPM = n
	}

	if v := getenv("SMTP_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SMTP_PORT %q", v)
		}
		c.SMTP.Port = n
	}
	if c.SMTP.From == "" {
		c.SMTP.From = orDefault(c.SMTP.Username, "noreply@example.com")
	}

	if (c.TLSCert == "") != (c.TLSKey == "") {
		return nil, fmt.Errorf("TLS_CERT and TLS_KEY must be set together")
	}

	if c.Google.RedirectURL == "" {
		c.Google.RedirectURL = c.AppURL + "/api/auth/google/callback"
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{c.AppURL}
	}

	return c, nil
}

// HTTPAddr is the listen address of the API.
func (c *Config) HTTPAddr() string {
	return ":" + c.HTTPPort
}

// GRPCAddr is the listen address of the ops gRPC server.
func (c *Config) GRPCAddr() string {
	return ":" + c.GRPCPort
}

func parseKeys(s string) (map[string]string, error) {
	keys := map[string]string{}
	for _, p := range strings.Split(s, ",") {
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid JWT_KEYS entry: %s", p)
		}
		keys[parts[0]] = parts[1]
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("JWT_KEYS has no entries")
	}
	return keys, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
