package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scenic/internal/geo"
	"scenic/internal/search"

	"github.com/spf13/viper"
)

// Geolocation modes.
const (
	GeoModeIP     = "ip"
	GeoModeStatic = "static"
	GeoModeOff    = "off"
)

// Config holds application configuration.
type Config struct {
	// ConfigDir holds onboarding state, the stored API key and UI preferences.
	ConfigDir string `mapstructure:"-"`

	Database DatabaseConfig
	Gemini   GeminiConfig
	Search   SearchConfig
	Geo      GeoConfig
	Log      LogConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// GeminiConfig holds provider settings.
type GeminiConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Model    string
	Endpoint string
}

// SearchConfig bounds a single road search.
type SearchConfig struct {
	Timeout time.Duration
}

// GeoConfig selects how the current location is found.
type GeoConfig struct {
	Mode     string
	Endpoint string
	Timeout  time.Duration
	Lat      float64
	Lon      float64
}

// LogConfig holds logging settings for the interactive app.
type LogConfig struct {
	Path string
}

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".scenic"), nil
}

// newViper creates a viper instance with defaults, the config file location
// and env overrides. Env vars use prefix SCENIC_, e.g. SCENIC_GEO_MODE.
func newViper(configDir, configFile string) *viper.Viper {
	v := viper.New()

	v.SetDefault("database.path", filepath.Join(configDir, "scenic.db"))
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", search.DefaultModel)
	v.SetDefault("gemini.endpoint", search.DefaultEndpoint)
	v.SetDefault("search.timeout", 45*time.Second)
	v.SetDefault("geo.mode", GeoModeIP)
	v.SetDefault("geo.endpoint", geo.DefaultIPEndpoint)
	v.SetDefault("geo.timeout", 10*time.Second)
	v.SetDefault("geo.lat", 0.0)
	v.SetDefault("geo.lon", 0.0)
	v.SetDefault("log.path", filepath.Join(configDir, "scenic.log"))

	v.SetConfigType("toml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SCENIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads the config file, if any, and decodes v into a Config.
// A missing default config file is fine; a missing explicit one is not.
func loadConfig(v *viper.Viper, configDir string) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.ConfigDir = configDir

	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = firstEnv("GEMINI_API_KEY", "API_KEY")
	}
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	switch c.Geo.Mode {
	case GeoModeIP, GeoModeStatic, GeoModeOff:
	default:
		return fmt.Errorf("invalid geo.mode %q: want %s, %s or %s", c.Geo.Mode, GeoModeIP, GeoModeStatic, GeoModeOff)
	}
	if c.Geo.Mode == GeoModeStatic {
		if c.Geo.Lat < -90 || c.Geo.Lat > 90 || c.Geo.Lon < -180 || c.Geo.Lon > 180 {
			return fmt.Errorf("geo.lat/geo.lon out of range: %v, %v", c.Geo.Lat, c.Geo.Lon)
		}
	}
	if c.Database.Path == "" {
		return errors.New("database.path must be set")
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

// loadDotEnv sets variables from a .env file without overriding the environment.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(strings.TrimPrefix(parts[0], "export "))
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}

		value = strings.Trim(value, `"'`)
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}
