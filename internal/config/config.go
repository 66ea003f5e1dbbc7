// Package config loads storefront settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/currency"
)

const (
	SessionFile     = "file"
	SessionPostgres = "postgres"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

type Config struct {
	APIURL         string        `default:"http://localhost:5001"`
	StripeKey      string
	StripeURL      string        `default:"https://api.stripe.com"`
	Currency       string        `default:"INR"`
	SessionBackend string        `default:"file"`
	SessionDir     string
	DatabaseURL    string
	Namespace      string        `default:"default"`
	HTTPTimeout    time.Duration `default:"15s"`
	SearchDebounce time.Duration `default:"300ms"`
	LogLevel       string        `default:"info"`
	LogFormat      string        `default:"text"`

	unit  currency.Unit
	level logrus.Level
}

// Load reads the given .env files, ".env" when none are given, fills defaults
// and applies environment overrides. Missing .env files are ignored.
// Variables already set in the environment win over .env values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("godotenv.Load[%s]: %w", f, err)
		}
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return Config{}, fmt.Errorf("defaults.Set: %w", err)
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if c.SessionDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return Config{}, fmt.Errorf("os.UserConfigDir: %w", err)
		}
		c.SessionDir = filepath.Join(dir, "storefront")
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"STOREFRONT_API_URL":           &c.APIURL,
		"STRIPE_PUBLISHABLE_KEY":       &c.StripeKey,
		"STRIPE_API_URL":               &c.StripeURL,
		"STOREFRONT_CURRENCY":          &c.Currency,
		"STOREFRONT_SESSION_BACKEND":   &c.SessionBackend,
		"STOREFRONT_SESSION_DIR":       &c.SessionDir,
		"DATABASE_URL":                 &c.DatabaseURL,
		"STOREFRONT_SESSION_NAMESPACE": &c.Namespace,
		"LOG_LEVEL":                    &c.LogLevel,
		"LOG_FORMAT":                   &c.LogFormat,
	}
	for key, field := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*field = strings.TrimSpace(v)
		}
	}

	durations := map[string]*time.Duration{
		"STOREFRONT_HTTP_TIMEOUT":    &c.HTTPTimeout,
		"STOREFRONT_SEARCH_DEBOUNCE": &c.SearchDebounce,
	}
	for key, field := range durations {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}

		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s[%s] is not a duration: %w", key, v, err)
		}
		*field = d
	}

	return nil
}

func (c *Config) validate() error {
	for key, raw := range map[string]string{"STOREFRONT_API_URL": c.APIURL, "STRIPE_API_URL": c.StripeURL} {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("%s[%s] is not an absolute url", key, raw)
		}
	}

	unit, err := currency.ParseISO(c.Currency)
	if err != nil {
		return fmt.Errorf("currency.ParseISO[%s]: %w", c.Currency, err)
	}
	c.unit = unit

	switch c.SessionBackend {
	case SessionFile:
	case SessionPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is empty for session backend %s", SessionPostgres)
		}
	default:
		return fmt.Errorf("session backend[%s] is not supported", c.SessionBackend)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout[%s] must be positive", c.HTTPTimeout)
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("search debounce[%s] must not be negative", c.SearchDebounce)
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("logrus.ParseLevel: %w", err)
	}
	c.level = level

	if c.LogFormat != FormatText && c.LogFormat != FormatJSON {
		return fmt.Errorf("log format[%s] is not supported", c.LogFormat)
	}

	return nil
}

// Unit returns the parsed currency.
func (c Config) Unit() currency.Unit {
	return c.unit
}

func (c Config) Level() logrus.Level {
	return c.level
}

// NewLogger builds the process logger writing to stderr.
func (c Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(c.level)

	if c.LogFormat == FormatJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return log
}
