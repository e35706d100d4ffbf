/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Reader        ReaderConfig  `yaml:"reader"`
	Library       LibraryConfig `yaml:"library"`
	Fetch         FetchConfig   `yaml:"fetch"`
	Cache         CacheConfig   `yaml:"cache"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	TelemetryURL   string `yaml:"telemetry_url"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

// ReaderConfig tunes the page view.
type ReaderConfig struct {
	FlipDelayMs int     `yaml:"flip_delay_ms"`
	BaseScale   float64 `yaml:"base_scale"`
	Sound       bool    `yaml:"sound"`
}

// LibraryConfig selects where the catalog is persisted.
type LibraryConfig struct {
	Backend     string `yaml:"backend"` // "file" | "sqlite" | "postgres" | "preferences"
	DataDir     string `yaml:"data_dir"`
	PostgresDSN string `yaml:"postgres_dsn"`
	// The Postgres password is not stored on disk; it lives in the OS keychain.
}

type FetchConfig struct {
	TimeoutMs int   `yaml:"timeout_ms"`
	MaxBytes  int64 `yaml:"max_bytes"`
}

type CacheConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Library backends.
const (
	BackendFile        = "file"
	BackendSQLite      = "sqlite"
	BackendPostgres    = "postgres"
	BackendPreferences = "preferences"
)

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Reader:        ReaderConfig{FlipDelayMs: 600, BaseScale: 1.5, Sound: true},
		Library:       LibraryConfig{Backend: BackendFile},
		Fetch:         FetchConfig{TimeoutMs: 30000, MaxBytes: 200 << 20},
		Cache:         CacheConfig{MaxBytes: 64 << 20},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvTelemetryOptIn = "GPR_TELEMETRY_OPT_IN"
	EnvTelemetryURL   = "GPR_TELEMETRY_URL"
	EnvFlipDelayMs    = "GPR_FLIP_DELAY_MS"
	EnvSound          = "GPR_SOUND"
	EnvBackend        = "GPR_LIBRARY_BACKEND"
	EnvDataDir        = "GPR_DATA_DIR"
	EnvPostgresDSN    = "GPR_POSTGRES_DSN"
	EnvPostgresPass   = "GPR_POSTGRES_PASSWORD"
	EnvFetchTimeoutMs = "GPR_FETCH_TIMEOUT_MS"
	EnvCacheMaxBytes  = "GPR_CACHE_MAX_BYTES"
	EnvLogLevel       = "GPR_LOG_LEVEL"
	EnvLogFormat      = "GPR_LOG_FORMAT"
	EnvLogSource      = "GPR_LOG_SOURCE"
	EnvLogFile        = "GPR_LOG_FILE"
	// EnvConfigPath points Load at a different YAML file.
	EnvConfigPath = "GPR_CONFIG"
)

// Service/keys for OS keyring.
const (
	keyringService  = "GoPDFReader"
	keyringPassword = "postgres_password"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring forwards to the functions defined in keyring_real.go or keyring_stub.go.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyringGet(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyringSet(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyringDelete(service, key) }

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoPDFReader")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoPDFReader")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "gopdfreader")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "gopdfreader")
		}
	}
	if base == "" || base == "GoPDFReader" || base == "gopdfreader" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path. GPR_CONFIG takes precedence.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir returns the directory holding the library, index and crash reports.
func (c AppConfig) DataDir() (string, error) {
	if d := strings.TrimSpace(c.Library.DataDir); d != "" {
		return d, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
// The Postgres password comes from the keyring (or GPR_POSTGRES_PASSWORD) and is returned separately.
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, "", err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path. A missing file is not an error.
func LoadFrom(path string) (AppConfig, string, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// unmarshal over the defaults so absent keys keep their default value
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			cfg = Defaults()
			applyEnvOverrides(&cfg)
			return cfg, secret(), fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		applyEnvOverrides(&cfg)
		return cfg, secret(), fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	normalize(&cfg)
	return cfg, secret(), nil
}

func secret() string {
	if v := os.Getenv(EnvPostgresPass); v != "" {
		return v
	}
	tok, _ := tokenStore.Get(keyringService, keyringPassword)
	return tok
}

// Save writes the user config YAML and persists the password into the OS keyring (if non-empty).
func Save(cfg AppConfig, password string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg, password)
}

// SaveTo is Save with an explicit file path.
func SaveTo(path string, cfg AppConfig, password string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := tokenStore.Set(keyringService, keyringPassword, password); err != nil {
			return fmt.Errorf("store password in keyring: %w", err)
		}
	}
	return nil
}

// ForgetPassword removes the stored Postgres password.
func ForgetPassword() error { return tokenStore.Delete(keyringService, keyringPassword) }

// normalize repairs out-of-range values coming from hand-edited files.
func normalize(cfg *AppConfig) {
	def := Defaults()
	if cfg.ConfigVersion == 0 {
		cfg.ConfigVersion = def.ConfigVersion
	}
	if cfg.Reader.FlipDelayMs < 0 {
		cfg.Reader.FlipDelayMs = def.Reader.FlipDelayMs
	}
	if cfg.Reader.BaseScale <= 0 {
		cfg.Reader.BaseScale = def.Reader.BaseScale
	}
	cfg.Library.Backend = strings.ToLower(strings.TrimSpace(cfg.Library.Backend))
	switch cfg.Library.Backend {
	case BackendFile, BackendSQLite, BackendPostgres, BackendPreferences:
	default:
		cfg.Library.Backend = def.Library.Backend
	}
	if cfg.Fetch.TimeoutMs <= 0 {
		cfg.Fetch.TimeoutMs = def.Fetch.TimeoutMs
	}
	if cfg.Fetch.MaxBytes <= 0 {
		cfg.Fetch.MaxBytes = def.Fetch.MaxBytes
	}
	if cfg.Cache.MaxBytes <= 0 {
		cfg.Cache.MaxBytes = def.Cache.MaxBytes
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Logging.File = strings.TrimSpace(cfg.Logging.File)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryURL)); v != "" {
		cfg.General.TelemetryURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFlipDelayMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Reader.FlipDelayMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSound)); v != "" {
		cfg.Reader.Sound = truthy(v)
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv(EnvBackend))); v != "" {
		cfg.Library.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.Library.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Library.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFetchTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Fetch.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheMaxBytes)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Cache.MaxBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"general.telemetry_url":    EnvTelemetryURL,
	"reader.flip_delay_ms":     EnvFlipDelayMs,
	"reader.sound":             EnvSound,
	"library.backend":          EnvBackend,
	"library.data_dir":         EnvDataDir,
	"library.postgres_dsn":     EnvPostgresDSN,
	"fetch.timeout_ms":         EnvFetchTimeoutMs,
	"cache.max_bytes":          EnvCacheMaxBytes,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envByKey[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// FlipDelay is the page transition duration.
func (r ReaderConfig) FlipDelay() time.Duration {
	return time.Duration(r.FlipDelayMs) * time.Millisecond
}

// Timeout is the HTTP fetch timeout.
func (f FetchConfig) Timeout() time.Duration {
	if f.TimeoutMs <= 0 {
		return time.Duration(Defaults().Fetch.TimeoutMs) * time.Millisecond
	}
	return time.Duration(f.TimeoutMs) * time.Millisecond
}
