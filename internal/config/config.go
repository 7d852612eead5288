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

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	ShirtColor     string `yaml:"shirt_color"` // initial surface background, e.g. "#FFFFFF"
}

type CanvasConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background"`
}

type ExportConfig struct {
	Multiplier int    `yaml:"multiplier"`
	OutDir     string `yaml:"out_dir"`
	Preset     string `yaml:"preset"` // "web" | "standard" | "print"
	FileName   string `yaml:"file_name"`
}

// ArtifactsConfig selects where exported bytes are published for download.
type ArtifactsConfig struct {
	Kind     string `yaml:"kind"` // memory | filesystem | sqlite | postgres | s3
	Path     string `yaml:"path"` // filesystem dir or sqlite file
	DSN      string `yaml:"dsn"`  // postgres connection string
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	MaxBytes int64  `yaml:"max_bytes"` // sqlite LRU cap; 0 disables eviction
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	General       GeneralConfig   `yaml:"general"`
	Canvas        CanvasConfig    `yaml:"canvas"`
	Export        ExportConfig    `yaml:"export"`
	Artifacts     ArtifactsConfig `yaml:"artifacts"`
	Server        ServerConfig    `yaml:"server"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, ShirtColor: "#FFFFFF"},
		Canvas:        CanvasConfig{Width: 400, Height: 500, Background: "#FFFFFF"},
		Export:        ExportConfig{Multiplier: 3, OutDir: "exports", Preset: "print", FileName: "tshirt_design.png"},
		Artifacts:     ArtifactsConfig{Kind: "memory", Path: "artifacts", MaxBytes: 256 * 1024 * 1024},
		Server:        ServerConfig{Addr: ":8080"},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "GTD_CONFIG"
	EnvTelemetryOptIn = "GTD_TELEMETRY_OPT_IN"
	EnvShirtColor     = "GTD_SHIRT_COLOR"
	EnvCanvasWidth    = "GTD_CANVAS_WIDTH"
	EnvCanvasHeight   = "GTD_CANVAS_HEIGHT"
	EnvExportMult     = "GTD_EXPORT_MULTIPLIER"
	EnvExportOutDir   = "GTD_EXPORT_OUT_DIR"
	EnvArtifactsKind  = "GTD_ARTIFACTS"
	EnvArtifactsPath  = "GTD_ARTIFACTS_PATH"
	EnvArtifactsDSN   = "GTD_PG_DSN"
	EnvS3Bucket       = "GTD_S3_BUCKET"
	EnvServerAddr     = "GTD_ADDR"
	EnvServerToken    = "GTD_SERVER_TOKEN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GTD_LOG_LEVEL"
	EnvLogFormat = "GTD_LOG_FORMAT"
	EnvLogSource = "GTD_LOG_SOURCE"
	EnvLogFile   = "GTD_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "GoTShirtDesigner"
	keyringToken   = "server_token"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = &osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (k *osKeyring) Get(service, key string) (string, error) { return keyringGet(service, key) }
func (k *osKeyring) Set(service, key, value string) error    { return keyringSet(service, key, value) }
func (k *osKeyring) Delete(service, key string) error        { return keyringDelete(service, key) }

// ConfigPath returns the per-user config file path. GTD_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoTShirtDesigner")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoTShirtDesigner")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "gotshirtdesigner")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// The artifact server token comes from GTD_SERVER_TOKEN or the keyring and is returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	if tok := strings.TrimSpace(os.Getenv(EnvServerToken)); tok != "" {
		return cfg, tok, nil
	}
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
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
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// ClearToken removes the stored server token from the keyring.
func ClearToken() error { return tokenStore.Delete(keyringService, keyringToken) }

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if s := strings.TrimSpace(src.General.ShirtColor); s != "" {
		dst.General.ShirtColor = strings.ToUpper(s)
	}
	if src.Canvas.Width > 0 {
		dst.Canvas.Width = src.Canvas.Width
	}
	if src.Canvas.Height > 0 {
		dst.Canvas.Height = src.Canvas.Height
	}
	if s := strings.TrimSpace(src.Canvas.Background); s != "" {
		dst.Canvas.Background = strings.ToUpper(s)
	}
	if src.Export.Multiplier > 0 {
		dst.Export.Multiplier = src.Export.Multiplier
	}
	if s := strings.TrimSpace(src.Export.OutDir); s != "" {
		dst.Export.OutDir = s
	}
	if s := strings.TrimSpace(src.Export.Preset); s != "" {
		dst.Export.Preset = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Export.FileName); s != "" {
		dst.Export.FileName = s
	}
	// artifacts
	if s := strings.TrimSpace(src.Artifacts.Kind); s != "" {
		dst.Artifacts.Kind = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Artifacts.Path); s != "" {
		dst.Artifacts.Path = s
	}
	if s := strings.TrimSpace(src.Artifacts.DSN); s != "" {
		dst.Artifacts.DSN = s
	}
	if s := strings.TrimSpace(src.Artifacts.Bucket); s != "" {
		dst.Artifacts.Bucket = s
	}
	if s := strings.TrimSpace(src.Artifacts.Prefix); s != "" {
		dst.Artifacts.Prefix = s
	}
	if src.Artifacts.MaxBytes != 0 {
		dst.Artifacts.MaxBytes = src.Artifacts.MaxBytes
	}
	if s := strings.TrimSpace(src.Server.Addr); s != "" {
		dst.Server.Addr = s
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvShirtColor)); v != "" {
		cfg.General.ShirtColor = strings.ToUpper(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCanvasWidth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Canvas.Width = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCanvasHeight)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Canvas.Height = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportMult)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Export.Multiplier = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportOutDir)); v != "" {
		cfg.Export.OutDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvArtifactsKind)); v != "" {
		cfg.Artifacts.Kind = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvArtifactsPath)); v != "" {
		cfg.Artifacts.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvArtifactsDSN)); v != "" {
		cfg.Artifacts.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvS3Bucket)); v != "" {
		cfg.Artifacts.Bucket = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"general.shirt_color":      EnvShirtColor,
	"canvas.width":             EnvCanvasWidth,
	"canvas.height":            EnvCanvasHeight,
	"export.multiplier":        EnvExportMult,
	"export.out_dir":           EnvExportOutDir,
	"artifacts.kind":           EnvArtifactsKind,
	"artifacts.path":           EnvArtifactsPath,
	"artifacts.dsn":            EnvArtifactsDSN,
	"artifacts.bucket":         EnvS3Bucket,
	"server.addr":              EnvServerAddr,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Validate reports configuration values the designer cannot start with.
func (c AppConfig) Validate() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Export.Multiplier <= 0 {
		return fmt.Errorf("export multiplier must be positive, got %d", c.Export.Multiplier)
	}
	switch c.Artifacts.Kind {
	case "", "memory", "filesystem", "sqlite":
	case "postgres":
		if c.Artifacts.DSN == "" {
			return errors.New("artifacts.dsn is required for postgres")
		}
	case "s3":
		if c.Artifacts.Bucket == "" {
			return errors.New("artifacts.bucket is required for s3")
		}
	default:
		return fmt.Errorf("unknown artifacts kind %q", c.Artifacts.Kind)
	}
	return nil
}
