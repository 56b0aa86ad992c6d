package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/roach88/emporium/internal/localstore"
	"github.com/roach88/emporium/internal/tabsync"
)

const (
	defaultConfigPath  = "~/.config/emporium/config.yaml"
	defaultDataDir     = "~/.local/share/emporium"
	defaultCountryCode = "673"
	defaultTimeZone    = "Asia/Brunei"
)

// Config holds resolved settings. Path fields are absolute once returned by
// Load. An empty Catalog means the embedded default catalog.
type Config struct {
	Database    string
	SocketPath  string
	Channel     string
	Namespace   string
	CountryCode string
	StoreNumber string
	TimeZone    string
	Catalog     string
}

// file mirrors the on-disk keys for both formats.
type file struct {
	Database    string `yaml:"database" toml:"database"`
	SocketPath  string `yaml:"socket" toml:"socket"`
	Channel     string `yaml:"channel" toml:"channel"`
	Namespace   string `yaml:"namespace" toml:"namespace"`
	CountryCode string `yaml:"country_code" toml:"country_code"`
	StoreNumber string `yaml:"store_number" toml:"store_number"`
	TimeZone    string `yaml:"time_zone" toml:"time_zone"`
	Catalog     string `yaml:"catalog" toml:"catalog"`
}

// Default returns the settings used when no file exists.
func Default() Config {
	dir := mustExpand(defaultDataDir)
	return Config{
		Database:    filepath.Join(dir, "local.db"),
		SocketPath:  filepath.Join(dir, "hub.sock"),
		Channel:     tabsync.DefaultChannelName,
		Namespace:   localstore.DefaultNamespace,
		CountryCode: defaultCountryCode,
		TimeZone:    defaultTimeZone,
	}
}

// Load locates and parses the config file, falling back to defaults when it
// is missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw file
	if strings.EqualFold(filepath.Ext(resolved), ".toml") {
		err = toml.Unmarshal(data, &raw)
	} else {
		err = decodeYAML(data, &raw)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", resolved, err)
	}

	if v := strings.TrimSpace(raw.Database); v != "" {
		cfg.Database = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.SocketPath); v != "" {
		cfg.SocketPath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.Catalog); v != "" {
		cfg.Catalog = mustExpand(v)
	}
	setIfPresent(&cfg.Channel, raw.Channel)
	setIfPresent(&cfg.Namespace, raw.Namespace)
	setIfPresent(&cfg.CountryCode, raw.CountryCode)
	setIfPresent(&cfg.TimeZone, raw.TimeZone)
	cfg.StoreNumber = strings.TrimSpace(raw.StoreNumber)

	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves TimeZone. An empty TimeZone is the local zone.
func (c Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.TimeZone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func decodeYAML(data []byte, out *file) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

func setIfPresent(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
