// Package config loads srcview configuration from an optional YAML file
// overlaid by SRCVIEW_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/meigma/srcview"
	"github.com/meigma/srcview/source"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SRCVIEW_"

// Config holds all srcview configuration.
type Config struct {
	// Archive
	ArchivePath  string `yaml:"archive"`
	BlockSize    int    `yaml:"block_size"`
	Compression  string `yaml:"compression"`
	Decompressor string `yaml:"decompressor"`
	TarCommand   string `yaml:"tar_command"`

	// Presentation
	ScriptURL string `yaml:"script_url"`
	PubPrefix string `yaml:"pub_prefix"`
	Title     string `yaml:"title"`
	IconURL   string `yaml:"icon_url"`
	Timezone  string `yaml:"timezone"`

	// Server
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogOutput string `yaml:"log_output"`

	// Mirror
	MirrorDir     string   `yaml:"mirror_dir"`
	MirrorExclude []string `yaml:"mirror_exclude"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		BlockSize:   srcview.DefaultBlockSize,
		Compression: "auto",
		ScriptURL:   srcview.DefaultScriptURL,
		PubPrefix:   "/pub/",
		Title:       "Source",
		IconURL:     srcview.DefaultIconURL,
		ListenAddr:  ":8080",
		MetricsAddr: ":9090",
		LogLevel:    "info",
		LogFormat:   "json",
		LogOutput:   "stderr",
	}
}

// Load builds a Config from defaults, then the YAML file at path if path
// is not empty, then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty file decodes to io.EOF and leaves the defaults alone.
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.ArchivePath = envOr("ARCHIVE", c.ArchivePath)
	c.Compression = envOr("COMPRESSION", c.Compression)
	c.Decompressor = envOr("DECOMPRESSOR", c.Decompressor)
	c.TarCommand = envOr("TAR_COMMAND", c.TarCommand)
	c.ScriptURL = envOr("SCRIPT_URL", c.ScriptURL)
	c.PubPrefix = envOr("PUB_PREFIX", c.PubPrefix)
	c.Title = envOr("TITLE", c.Title)
	c.IconURL = envOr("ICON_URL", c.IconURL)
	c.Timezone = envOr("TIMEZONE", c.Timezone)
	c.ListenAddr = envOr("LISTEN_ADDR", c.ListenAddr)
	c.MetricsAddr = envOr("METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOr("LOG_FORMAT", c.LogFormat)
	c.LogOutput = envOr("LOG_OUTPUT", c.LogOutput)
	c.MirrorDir = envOr("MIRROR_DIR", c.MirrorDir)
	c.MirrorExclude = envList("MIRROR_EXCLUDE", c.MirrorExclude)

	n, err := envInt("BLOCK_SIZE", c.BlockSize)
	if err != nil {
		return err
	}
	c.BlockSize = n
	return nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.ArchivePath == "" {
		errs = append(errs, errors.New(EnvPrefix+"ARCHIVE is required"))
	}
	if c.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("block size %d must be positive", c.BlockSize))
	}
	if _, err := source.ParseCompression(c.Compression); err != nil {
		errs = append(errs, err)
	}
	if !strings.HasPrefix(c.PubPrefix, "/") || !strings.HasSuffix(c.PubPrefix, "/") {
		errs = append(errs, fmt.Errorf("pub prefix %q must start and end with /", c.PubPrefix))
	}
	if !strings.HasPrefix(c.ScriptURL, "/") {
		errs = append(errs, fmt.Errorf("script url %q must be an absolute path", c.ScriptURL))
	}
	if c.PubPrefix == c.ScriptURL || c.PubPrefix == c.ScriptURL+"/" {
		errs = append(errs, errors.New("pub prefix and script url must differ"))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be json or console", c.LogFormat))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	for _, pattern := range c.MirrorExclude {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("mirror exclude %q is not a valid glob", pattern))
		}
	}
	return errors.Join(errs...)
}

// Location returns the time zone modification times are printed in.
// An empty Timezone is the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// IsRemote reports whether ArchivePath is an http or https URL.
func (c *Config) IsRemote() bool {
	return strings.HasPrefix(c.ArchivePath, "http://") || strings.HasPrefix(c.ArchivePath, "https://")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	return i, nil
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string, fallback []string) []string {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
