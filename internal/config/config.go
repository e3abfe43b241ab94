package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"telegramRiskBot/internal/finance"
)

type Config struct {
	TelegramToken    string `mapstructure:"telegram_bot_token"`
	WebhookPublicURL string `mapstructure:"webhook_public_url"`
	OpenAIKey        string `mapstructure:"openai_api_key"`
	OpenAIModel      string `mapstructure:"openai_model"`
	Port             string `mapstructure:"port"`
	DBPath           string `mapstructure:"db_path"`

	LogFile        string `mapstructure:"log_file"`
	LogDevelopment bool   `mapstructure:"log_development"`

	Confidence  float64 `mapstructure:"var_confidence"`
	Notional    float64 `mapstructure:"var_notional"`
	HorizonDays int     `mapstructure:"var_horizon_days"`
	Window      string  `mapstructure:"var_window"`

	PriceCache       bool          `mapstructure:"price_cache"`
	PriceCacheTTL    time.Duration `mapstructure:"price_cache_ttl"`
	YahooMaxTries    int           `mapstructure:"yahoo_max_tries"`
	YahooConcurrency int           `mapstructure:"yahoo_concurrency"`
}

const (
	DefaultPort        = "9095"
	DefaultDBPath      = "/app/data/risk.db"
	DefaultConfidence  = 0.05
	DefaultNotional    = 1000.0
	DefaultHorizonDays = 30
	DefaultOpenAIModel = "gpt-4o-mini"
)

var defaults = map[string]any{
	"telegram_bot_token": "",
	"webhook_public_url": "",
	"openai_api_key":     "",
	"openai_model":       DefaultOpenAIModel,
	"port":               DefaultPort,
	"db_path":            DefaultDBPath,
	"log_file":           "",
	"log_development":    false,
	"var_confidence":     DefaultConfidence,
	"var_notional":       DefaultNotional,
	"var_horizon_days":   DefaultHorizonDays,
	"var_window":         finance.DefaultWindow,
	"price_cache":        true,
	"price_cache_ttl":    finance.DefaultPriceCacheTTL,
	"yahoo_max_tries":    finance.DefaultMaxTries,
	"yahoo_concurrency":  finance.DefaultConcurrency,
}

// flagKeys maps command line flag names onto config keys.
var flagKeys = map[string]string{
	"confidence": "var_confidence",
	"notional":   "var_notional",
	"horizon":    "var_horizon_days",
	"window":     "var_window",
	"db":         "db_path",
	"log-file":   "log_file",
	"debug":      "log_development",
	"cache":      "price_cache",
}

// Load reads defaults, then the optional config file at path, then the
// environment (upper-cased keys), then any changed flags from fs.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings shared by every entry point.
func (c *Config) Validate() error {
	if c.Confidence <= 0 || c.Confidence >= 1 {
		return fmt.Errorf("var_confidence must be in (0, 1), got %v", c.Confidence)
	}
	if c.Notional <= 0 {
		return fmt.Errorf("var_notional must be positive, got %v", c.Notional)
	}
	if c.HorizonDays < 1 {
		return fmt.Errorf("var_horizon_days must be at least 1, got %d", c.HorizonDays)
	}
	if _, _, err := finance.WindowRange(c.Window, time.Now()); err != nil {
		return err
	}
	if c.PriceCacheTTL < 0 {
		return errors.New("invalid price_cache_ttl")
	}
	if c.YahooMaxTries < 1 {
		return errors.New("invalid yahoo_max_tries")
	}
	if c.YahooConcurrency < 1 {
		return errors.New("invalid yahoo_concurrency")
	}
	return nil
}

// ValidateBot checks what the Telegram bot needs on top of Validate.
func (c *Config) ValidateBot() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.TelegramToken == "" {
		return errors.New("missing TELEGRAM_BOT_TOKEN")
	}
	if c.WebhookPublicURL == "" {
		return errors.New("missing WEBHOOK_PUBLIC_URL")
	}
	u, err := url.Parse(c.WebhookPublicURL)
	if err != nil || u.Host == "" {
		return errors.New("invalid WEBHOOK_PUBLIC_URL")
	}
	if u.Scheme != "https" {
		return errors.New("WEBHOOK_PUBLIC_URL must use HTTPS")
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	return nil
}
