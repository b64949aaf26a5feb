package config // package config loads application configuration from environment variables

import (
    "errors"
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  It is built once by Load
// and passed by pointer to the components that need it; nothing mutates it
// afterwards.
type Config struct {
    Env            string        // application environment (e.g. "dev", "prod")
    Port           string        // HTTP port to listen on
    DBUser         string        // database username
    DBPass         string        // database password (optional)
    DBHost         string        // database host address
    DBPort         string        // database port number
    DBName         string        // database name
    JWTSecret      string        // secret used to verify identity tokens
    AdminEmails    []string      // lower-cased admin allow-list
    HoldDuration   time.Duration // lifetime of a seat hold
    ReloadInterval time.Duration // projector full reload period
    InflightTTL    time.Duration // expiry of the per-actor in-flight guard
    AMQPURL        string        // change feed broker; empty means in-process feed
    LogLevel       string        // logrus level name
    LogFormat      string        // "json" or "text"
}

// Load reads an optional .env file and then the environment.  Every missing
// required variable is reported in one error.
func Load() (*Config, error) {
    _ = godotenv.Load() // a missing .env file is fine

    var missing []string
    must := func(key string) string {
        v := strings.TrimSpace(os.Getenv(key))
        if v == "" {
            missing = append(missing, key)
        }
        return v
    }

    cfg := &Config{
        Env:            getenv("APP_ENV", "dev"),
        Port:           getenv("APP_PORT", "8080"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"),
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AdminEmails:    parseEmails(os.Getenv("ADMIN_EMAILS")),
        HoldDuration:   envDur("HOLD_DURATION", 300*time.Second),
        ReloadInterval: envDur("RELOAD_INTERVAL", 30*time.Second),
        InflightTTL:    envDur("INFLIGHT_TTL", 15*time.Second),
        AMQPURL:        envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
        LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
        LogFormat:      strings.ToLower(getenv("LOG_FORMAT", "text")),
    }
    if len(missing) > 0 {
        return nil, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
    }
    if cfg.HoldDuration <= 0 {
        return nil, errors.New("HOLD_DURATION must be positive")
    }
    if cfg.ReloadInterval <= 0 {
        cfg.ReloadInterval = 30 * time.Second
    }
    if cfg.InflightTTL <= 0 {
        cfg.InflightTTL = 15 * time.Second
    }
    return cfg, nil
}

// IsAdmin reports whether email is on the admin allow-list.
func (c *Config) IsAdmin(email string) bool {
    e := strings.ToLower(strings.TrimSpace(email))
    if e == "" {
        return false
    }
    for _, a := range c.AdminEmails {
        if a == e {
            return true
        }
    }
    return false
}

func parseEmails(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        p = strings.ToLower(strings.TrimSpace(p))
        if p != "" {
            out = append(out, p)
        }
    }
    return out
}
