// Package config loads contactsheet settings from YAML, .env and the
// environment.
package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// LocalConfigName is picked up from the working directory when no --config
// flag is given.
const LocalConfigName = "contactsheet.yaml"

// StateDir holds the index database created by init.
const StateDir = ".contactsheet"

type Photos struct {
	Dir               string   `yaml:"dir"`
	Extensions        []string `yaml:"extensions"`
	Cache             string   `yaml:"cache"`
	Reader            string   `yaml:"reader"` // identify, exiftool or exif
	IdentifyCommand   string   `yaml:"identify_command"`
	Timeout           string   `yaml:"timeout"`
	PreferHEICSibling bool     `yaml:"prefer_heic_sibling"`
}

type Index struct {
	DSN string `yaml:"dsn"`
	// FromEnv is set when DSN came from DATABASE_URL rather than the file.
	FromEnv bool `yaml:"-"`
}

type Server struct {
	Addr       string `yaml:"addr"`
	Root       string `yaml:"root"`
	DateSource string `yaml:"date_source"` // cache or live
	LiveReader string `yaml:"live_reader"` // reader used per request when live
}

type Page struct {
	Size         string  `yaml:"size"`
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	MarginTop    float64 `yaml:"margin_top"`
	MarginBottom float64 `yaml:"margin_bottom"`
	MarginSide   float64 `yaml:"margin_side"`
}

type Document struct {
	Input      string `yaml:"input"`
	Output     string `yaml:"output"`
	Title      string `yaml:"title"`
	Subtitle   string `yaml:"subtitle"`
	Author     string `yaml:"author"`
	Version    string `yaml:"version"`
	TOCTitle   string `yaml:"toc_title"`
	TOCDepth   int    `yaml:"toc_depth"`
	CodeStyle  string `yaml:"code_style"`
	BrowserBin string `yaml:"browser_bin"`
	NoSandbox  bool   `yaml:"no_sandbox"`
	Page       Page   `yaml:"page"`
}

type Thumbnails struct {
	Dir      string `yaml:"dir"`
	MaxWidth int    `yaml:"max_width"`
	Quality  int    `yaml:"quality"`
	Workers  int    `yaml:"workers"`
}

type Config struct {
	LogLevel   string     `yaml:"log_level"`
	Photos     Photos     `yaml:"photos"`
	Index      Index      `yaml:"index"`
	Server     Server     `yaml:"server"`
	Document   Document   `yaml:"document"`
	Thumbnails Thumbnails `yaml:"thumbnails"`
}

// ReaderTimeout is the per-file limit for external metadata readers.
func (c *Config) ReaderTimeout() time.Duration {
	d, err := time.ParseDuration(c.Photos.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "contactsheet", "config.yaml")
}

// DefaultIndexPath is the SQLite index created by `contactsheet init`.
func DefaultIndexPath() string {
	return filepath.Join(StateDir, "index.db")
}

// DefaultBytes returns the embedded default config file.
func DefaultBytes() []byte {
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return data
}

// Defaults returns the configuration used when no file overrides it.
func Defaults() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(DefaultBytes(), &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load resolves the config file, applies it over the defaults, then applies
// .env and environment overrides. An empty path searches the working
// directory and then the XDG config home; neither existing is not an error.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		path = findConfig()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(cfg)
	cfg.Photos.Extensions = NormalizeExtensions(cfg.Photos.Extensions)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func findConfig() string {
	for _, candidate := range []string{LocalConfigName, DefaultConfigPath()} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" && cfg.Index.DSN == "" {
		cfg.Index.DSN = v
		cfg.Index.FromEnv = true
	}
	if v := os.Getenv("CONTACTSHEET_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CONTACTSHEET_BROWSER_BIN"); v != "" {
		cfg.Document.BrowserBin = v
	}
}

// NormalizeExtensions lowercases each extension and adds the leading dot
// that filepath.Ext includes.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Photos.Dir) == "" {
		return fmt.Errorf("%w: photos.dir is required", ErrInvalid)
	}
	if strings.TrimSpace(c.Photos.Cache) == "" {
		return fmt.Errorf("%w: photos.cache is required", ErrInvalid)
	}
	if len(c.Photos.Extensions) == 0 {
		return fmt.Errorf("%w: photos.extensions must list at least one extension", ErrInvalid)
	}
	for _, e := range c.Photos.Extensions {
		if e == "" || e == "." || strings.ContainsAny(e, `/\`) {
			return fmt.Errorf("%w: photos.extensions entry %q is not a file extension", ErrInvalid, e)
		}
		if e[0] != '.' || strings.ToLower(e) != e {
			return fmt.Errorf("%w: photos.extensions entry %q must be lowercase with a leading dot", ErrInvalid, e)
		}
	}

	for key, reader := range map[string]string{
		"photos.reader":      c.Photos.Reader,
		"server.live_reader": c.Server.LiveReader,
	} {
		switch reader {
		case "identify", "exiftool", "exif":
		default:
			return fmt.Errorf("%w: unknown %s %q (valid: identify, exiftool, exif)", ErrInvalid, key, reader)
		}
	}

	if d, err := time.ParseDuration(c.Photos.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("%w: photos.timeout %q is not a positive duration", ErrInvalid, c.Photos.Timeout)
	}

	switch c.Server.DateSource {
	case "cache", "live":
	default:
		return fmt.Errorf("%w: unknown server.date_source %q (valid: cache, live)", ErrInvalid, c.Server.DateSource)
	}

	if c.Thumbnails.MaxWidth <= 0 {
		return fmt.Errorf("%w: thumbnails.max_width must be positive", ErrInvalid)
	}
	if c.Thumbnails.Quality < 1 || c.Thumbnails.Quality > 100 {
		return fmt.Errorf("%w: thumbnails.quality must be between 1 and 100", ErrInvalid)
	}

	p := c.Document.Page
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: document.page width and height must be positive", ErrInvalid)
	}
	if p.MarginTop < 0 || p.MarginBottom < 0 || p.MarginSide < 0 {
		return fmt.Errorf("%w: document.page margins cannot be negative", ErrInvalid)
	}

	return nil
}
