package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Catalog CatalogConfig `mapstructure:"catalog"`
	Images  ImagesConfig  `mapstructure:"images"`
	Output  OutputConfig  `mapstructure:"output"`
	Workers WorkersConfig `mapstructure:"workers"`
	Match   MatchConfig   `mapstructure:"match"`
	OCR     OCRConfig     `mapstructure:"ocr"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Server  ServerConfig  `mapstructure:"server"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

// CatalogConfig lists the catalog sources. Item files are merged in order.
type CatalogConfig struct {
	Items  []string `mapstructure:"items"`
	Traits string   `mapstructure:"traits"`
}

type ImagesConfig struct {
	Dir         string `mapstructure:"dir"`
	TitlePrefix string `mapstructure:"title_prefix"`
	TraitPrefix string `mapstructure:"trait_prefix"`
}

type OutputConfig struct {
	Dir     string   `mapstructure:"dir"`
	Formats []string `mapstructure:"formats"`
}

type WorkersConfig struct {
	Count       int           `mapstructure:"count"`
	UnitTimeout time.Duration `mapstructure:"unit_timeout"`
}

type MatchConfig struct {
	Threshold float64 `mapstructure:"threshold"`
	Limit     int     `mapstructure:"limit"`
}

type OCRConfig struct {
	Language       string `mapstructure:"language"`
	TessdataPrefix string `mapstructure:"tessdata_prefix"`
}

type LogConfig struct {
	File  string `mapstructure:"file"`
	Debug bool   `mapstructure:"debug"`
}

type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Port      string  `mapstructure:"port"`
	JWTSecret string  `mapstructure:"jwt_secret"`
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

var validFormats = map[string]bool{"csv": true, "xlsx": true, "postgres": true}

// Load reads .env (when present), an optional config file and INVEN_* environment
// variables, in increasing order of precedence over the defaults. An empty path
// searches for config.yaml in . and ./config.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("INVEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	// DB_DSN is what the maintenance tools have always read.
	if config.DB.DSN == "" {
		config.DB.DSN = os.Getenv("DB_DSN")
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.items", []string{"weapons.csv", "armor.csv", "accessories.csv"})
	v.SetDefault("catalog.traits", "traits.csv")

	v.SetDefault("images.dir", "cropped_screenshots")
	v.SetDefault("images.title_prefix", "title_cropped")
	v.SetDefault("images.trait_prefix", "trait_cropped")

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.formats", []string{"csv"})

	v.SetDefault("workers.count", 4)
	v.SetDefault("workers.unit_timeout", "0s")

	v.SetDefault("match.threshold", 80.0)
	v.SetDefault("match.limit", 5)

	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.tessdata_prefix", "")

	v.SetDefault("log.file", "app.log")
	v.SetDefault("log.debug", false)

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.auto_migrate", true)

	v.SetDefault("server.port", "8081")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.rate_limit", 2.0)
	v.SetDefault("server.rate_burst", 4)

	v.SetDefault("watch.debounce", "300ms")
}

func validate(config *Config) error {
	if config.Workers.Count < 1 {
		return fmt.Errorf("workers.count must be at least 1, got: %d", config.Workers.Count)
	}
	if config.Workers.UnitTimeout < 0 {
		return fmt.Errorf("workers.unit_timeout must not be negative")
	}
	if config.Match.Threshold <= 0 || config.Match.Threshold > 100 {
		return fmt.Errorf("match.threshold must be in (0, 100], got: %v", config.Match.Threshold)
	}
	if config.Match.Limit < 1 {
		return fmt.Errorf("match.limit must be at least 1, got: %d", config.Match.Limit)
	}
	if len(config.Catalog.Items) == 0 || config.Catalog.Traits == "" {
		return fmt.Errorf("catalog.items and catalog.traits are required")
	}
	for i, f := range config.Output.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if !validFormats[f] {
			return fmt.Errorf("output format must be one of csv, xlsx, postgres, got: %s", f)
		}
		config.Output.Formats[i] = f
		if f == "postgres" && config.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for postgres output (set INVEN_DB_DSN or DB_DSN)")
		}
	}
	return nil
}

// HasFormat reports whether output format f is enabled.
func (c *Config) HasFormat(f string) bool {
	for _, x := range c.Output.Formats {
		if x == f {
			return true
		}
	}
	return false
}
