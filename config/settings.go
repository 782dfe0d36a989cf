// Package config provides application settings loaded from a YAML file,
// environment variables and defaults.
//
// Settings are created via Load() which handles:
// - Default value application
// - Environment variable parsing with validation
// - YAML file overlay, creating the file on first run
// - Struct validation with typed configuration errors

package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domainerrors "github.com/richinex/booksearch/internal/errors"
	"github.com/richinex/booksearch/model"
	"github.com/richinex/booksearch/storage"
)

// PathEnv overrides the default config file location.
const PathEnv = "BOOKSEARCH_CONFIG"

// Settings holds all application configuration.
type Settings struct {
	Prowlarr ProwlarrConfig `yaml:"prowlarr"`
	Cache    CacheConfig    `yaml:"cache"`
	Search   SearchConfig   `yaml:"search"`
	Log      LogConfig      `yaml:"log"`
}

// ProwlarrConfig holds the service endpoint and credentials.
type ProwlarrConfig struct {
	URL     string        `yaml:"url,omitempty" validate:"required,url"`
	APIKey  string        `yaml:"api_key,omitempty" validate:"required"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// CacheConfig holds result cache location and retention limits.
type CacheConfig struct {
	Dir        string `yaml:"dir" validate:"required"`
	Backend    string `yaml:"backend" validate:"oneof=files sqlite"`
	MaxAge     int    `yaml:"max_age" validate:"gte=0"`  // hours
	MaxSize    int    `yaml:"max_size" validate:"gte=0"` // megabytes
	MaxEntries int    `yaml:"max_entries" validate:"gte=0"`
}

// SearchConfig holds defaults applied when flags are absent.
type SearchConfig struct {
	DefaultProtocol  string `yaml:"default_protocol" validate:"oneof=tor nzb torrent usenet both"`
	DefaultMediaType string `yaml:"default_media_type" validate:"oneof=audio book audiobooks ebook both"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
}

// Defaults returns settings with every optional value filled in.
func Defaults() Settings {
	cacheDir := "booksearch-cache"
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "booksearch")
	}
	return Settings{
		Prowlarr: ProwlarrConfig{Timeout: 30 * time.Second},
		Cache: CacheConfig{
			Dir:        cacheDir,
			Backend:    storage.BackendFiles,
			MaxAge:     168,
			MaxSize:    100,
			MaxEntries: 100,
		},
		Search: SearchConfig{DefaultProtocol: "both", DefaultMediaType: "both"},
		Log:    LogConfig{Level: "warn"},
	}
}

// Path resolves the config file location: the explicit path if given,
// else $BOOKSEARCH_CONFIG, else <user config dir>/booksearch/config.yaml.
func Path(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(PathEnv); env != "" {
		return env, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", domainerrors.Configurationf("cannot locate config directory: %v", err)
	}
	return filepath.Join(dir, "booksearch", "config.yaml"), nil
}

// Load builds settings from defaults, then the environment, then the YAML
// file at path. Keys present in the file win over the environment field by
// field, except that an empty url or api_key in the file counts as absent.
// A missing file is created from the merged environment and defaults.
func Load(path string) (Settings, error) {
	settings := Defaults()
	if err := settings.applyEnv(); err != nil {
		return Settings{}, err
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := settings.Write(path); err != nil {
			return Settings{}, err
		}
	case err != nil:
		return Settings{}, domainerrors.Configurationf("read config file %s: %v", path, err)
	default:
		env := settings.Prowlarr
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, domainerrors.Configurationf("parse config file %s: %v", path, err)
		}
		if strings.TrimSpace(settings.Prowlarr.URL) == "" {
			settings.Prowlarr.URL = env.URL
		}
		if strings.TrimSpace(settings.Prowlarr.APIKey) == "" {
			settings.Prowlarr.APIKey = env.APIKey
		}
	}

	settings.normalize()
	if err := Validate(settings); err != nil {
		return Settings{}, domainerrors.Configurationf("%v (edit %s or set PROWLARR_URL and API_KEY)", err, path)
	}
	return settings, nil
}

// Write saves settings as YAML, creating parent directories. The file holds
// the API key, so it is only readable by the owner.
func (s Settings) Write(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return domainerrors.Configurationf("encode config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domainerrors.Configurationf("create config directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return domainerrors.Configurationf("write config file %s: %v", path, err)
	}
	return nil
}

// Masked returns a copy with the API key hidden, for display.
func (s Settings) Masked() Settings {
	key := s.Prowlarr.APIKey
	switch {
	case key == "":
	case len(key) <= 4:
		s.Prowlarr.APIKey = "****"
	default:
		s.Prowlarr.APIKey = strings.Repeat("*", len(key)-4) + key[len(key)-4:]
	}
	return s
}

// YAML renders the settings as a YAML document.
func (s Settings) YAML() (string, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Limits converts the cache settings into storage limits.
func (s Settings) Limits() storage.Limits {
	return storage.Limits{
		MaxAge:       time.Duration(s.Cache.MaxAge) * time.Hour,
		MaxSizeBytes: int64(s.Cache.MaxSize) * 1024 * 1024,
		MaxEntries:   s.Cache.MaxEntries,
	}
}

// DefaultProtocol returns the configured protocol filter.
func (s Settings) DefaultProtocol() model.Protocol {
	p, err := model.ParseProtocol(s.Search.DefaultProtocol)
	if err != nil {
		return model.ProtocolAny
	}
	return p
}

// DefaultKind returns the configured media kind.
func (s Settings) DefaultKind() model.Kind {
	k, err := model.ParseKind(s.Search.DefaultMediaType)
	if err != nil {
		return model.KindBoth
	}
	return k
}

func (s *Settings) normalize() {
	s.Prowlarr.URL = strings.TrimRight(strings.TrimSpace(s.Prowlarr.URL), "/")
	s.Prowlarr.APIKey = strings.TrimSpace(s.Prowlarr.APIKey)
	s.Cache.Backend = strings.ToLower(strings.TrimSpace(s.Cache.Backend))
	s.Search.DefaultProtocol = strings.ToLower(strings.TrimSpace(s.Search.DefaultProtocol))
	s.Search.DefaultMediaType = strings.ToLower(strings.TrimSpace(s.Search.DefaultMediaType))
	s.Log.Level = strings.ToLower(strings.TrimSpace(s.Log.Level))
}

// applyEnv overlays environment variables onto s.
func (s *Settings) applyEnv() error {
	setString(&s.Prowlarr.URL, "PROWLARR_URL")
	setString(&s.Prowlarr.APIKey, "API_KEY")
	setString(&s.Cache.Dir, "CACHE_DIR")
	setString(&s.Cache.Backend, "CACHE_BACKEND")
	setString(&s.Search.DefaultProtocol, "DEFAULT_PROTOCOL")
	setString(&s.Search.DefaultMediaType, "DEFAULT_MEDIA_TYPE")
	setString(&s.Log.Level, "LOG_LEVEL")

	var err error
	if s.Prowlarr.Timeout, err = getEnvDuration("PROWLARR_TIMEOUT", s.Prowlarr.Timeout); err != nil {
		return err
	}
	if s.Cache.MaxAge, err = getEnvInt("CACHE_MAX_AGE", s.Cache.MaxAge); err != nil {
		return err
	}
	if s.Cache.MaxSize, err = getEnvInt("CACHE_MAX_SIZE", s.Cache.MaxSize); err != nil {
		return err
	}
	if s.Cache.MaxEntries, err = getEnvInt("CACHE_MAX_ENTRIES", s.Cache.MaxEntries); err != nil {
		return err
	}
	return nil
}

// Environment variable helpers with proper error handling

func setString(dst *string, key string) {
	if val := envValue(key); val != "" {
		*dst = val
	}
}

// envValue returns the variable with any trailing "# comment" removed.
func envValue(key string) string {
	val, _, _ := strings.Cut(os.Getenv(key), "#")
	return strings.TrimSpace(val)
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := envValue(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, domainerrors.Configurationf("invalid value for %s: %q must be an integer", key, val)
	}
	return i, nil
}

// getEnvDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := envValue(key)
	if val == "" {
		return defaultVal, nil
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, domainerrors.Configurationf("invalid value for %s: %q must be a duration", key, val)
	}
	return d, nil
}
