// Package config assembles the process configuration from the environment
// once at startup. Components receive the pieces they need through their
// constructors and never read the environment themselves.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-todo-go/internal/mail"
	"github.com/ovaphlow/pitchfork/service-todo-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-todo-go/pkg/utilities"
)

var defaultOrigins = []string{
	"http://localhost:5173",
	"https://fullstack-todoapp-gyay.onrender.com",
	"https://fullstack-todo-frontend-hwje.onrender.com",
	"https://fullstack-todo-frontend.onrender.com",
	"https://fullstack-todoapp-frontend.onrender.com",
}

type Config struct {
	Addr           string
	Env            string
	AppName        string
	Database       database.Config
	Log            utilities.Config
	RedisURL       string
	JWTSecret      string
	TokenTTL       time.Duration
	OTPTTL         time.Duration
	BcryptCost     int
	SnowflakeNode  int64
	Email          mail.Config
	AllowedOrigins []string
}

// Production reports whether cookies must be marked Secure and SameSite=None.
func (c Config) Production() bool { return c.Env == "production" }

var ErrMissingSecret = errors.New("JWT_SECRET is required")

func Load() (Config, error) {
	clean := func(val string) string {
		return strings.Trim(val, "\"' \t\r\n")
	}

	cfg := Config{
		Addr:           getenvDefault("HTTP_ADDR", "0.0.0.0:8431"),
		Env:            firstNonEmpty(os.Getenv("APP_ENV"), os.Getenv("NODE_ENV"), "development"),
		AppName:        getenvDefault("APP_NAME", "FullStack-Todo-App"),
		Database:       database.ConfigFromEnv(),
		Log:            utilities.ConfigFromEnv(),
		RedisURL:       os.Getenv("REDIS_URL"),
		JWTSecret:      clean(os.Getenv("JWT_SECRET")),
		TokenTTL:       parseDuration(os.Getenv("TOKEN_TTL"), 7*24*time.Hour),
		OTPTTL:         parseDuration(os.Getenv("OTP_TTL"), 10*time.Minute),
		BcryptCost:     parseInt(os.Getenv("BCRYPT_COST"), 10),
		SnowflakeNode:  utilities.NodeFromEnv(),
		AllowedOrigins: parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = append([]string(nil), defaultOrigins...)
	}

	cfg.Email = mail.Config{
		Driver:   getenvDefault("EMAIL_DRIVER", "smtp"),
		Host:     clean(os.Getenv("EMAIL_SERVER_HOST")),
		Port:     parseInt(clean(os.Getenv("EMAIL_SERVER_PORT")), 587),
		Username: clean(os.Getenv("EMAIL_SERVER_USER")),
		Password: clean(os.Getenv("EMAIL_SERVER_PASSWORD")),
		From:     clean(firstNonEmpty(os.Getenv("SENDER_EMAIL"), os.Getenv("EMAIL_FROM"))),
		Secure:   parseBool(os.Getenv("EMAIL_SERVER_SECURE")),
	}

	if cfg.JWTSecret == "" {
		return Config{}, ErrMissingSecret
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

func parseInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseOrigins drops trailing slashes so entries compare equal to the
// Origin header a browser sends.
func parseOrigins(v string) []string {
	out := parseList(v)
	for i, o := range out {
		out[i] = strings.TrimRight(o, "/")
	}
	return out
}
