package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kelseyhightower/envconfig"

	"github.com/treeline-dev/treeline/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "treeline.json"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "treeline"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultOutput is the default static export directory.
	DefaultOutput = "out"
)

// Config is the complete treeline.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// AssetPrefix is prepended to every stylesheet and script reference
	// the route modules declare. A CDN origin typically goes here.
	AssetPrefix string `json:"assetPrefix,omitempty" envconfig:"ASSET_PREFIX"`

	// Lang is the document language attribute.
	Lang string `json:"lang,omitempty"`

	// Server contains HTTP server settings.
	Server ServerConfig `json:"server,omitempty"`

	// Render contains render engine settings.
	Render RenderConfig `json:"render,omitempty"`

	// Static contains static file serving settings.
	Static StaticConfig `json:"static,omitempty"`

	// Export contains static export settings.
	Export ExportConfig `json:"export,omitempty"`

	// Dev contains development server settings.
	Dev DevConfig `json:"dev,omitempty"`

	// configPath stores the path the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Port is the port to listen on.
	Port int `json:"port,omitempty" envconfig:"PORT"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty" envconfig:"HOST"`
}

// RenderConfig contains render engine settings.
type RenderConfig struct {
	// DefaultRevalidate is the starting revalidation interval in seconds
	// for cacheable renders. Zero disables caching by default.
	DefaultRevalidate int `json:"defaultRevalidate,omitempty" envconfig:"DEFAULT_REVALIDATE"`

	// PartialPrerender enables postponed rendering for dynamic segments.
	PartialPrerender bool `json:"partialPrerender,omitempty" envconfig:"PARTIAL_PRERENDER"`

	// ActionBodyLimit bounds server action request bodies in bytes.
	ActionBodyLimit int64 `json:"actionBodyLimit,omitempty" envconfig:"ACTION_BODY_LIMIT"`
}

// StaticConfig contains static file serving settings.
type StaticConfig struct {
	// Dir is the directory containing static files.
	Dir string `json:"dir,omitempty"`

	// Prefix is the URL prefix for static files.
	Prefix string `json:"prefix,omitempty"`
}

// ExportConfig contains static export settings.
type ExportConfig struct {
	// Output is the directory exported pages are written to.
	Output string `json:"output,omitempty" envconfig:"EXPORT_OUTPUT"`

	// S3Bucket, when set, mirrors the export to an S3 bucket.
	S3Bucket string `json:"s3Bucket,omitempty" envconfig:"EXPORT_S3_BUCKET"`

	// S3Prefix is the key prefix inside the bucket.
	S3Prefix string `json:"s3Prefix,omitempty" envconfig:"EXPORT_S3_PREFIX"`
}

// DevConfig contains development server settings.
type DevConfig struct {
	// LiveReload pushes reload events to connected browsers.
	LiveReload bool `json:"liveReload,omitempty" envconfig:"LIVE_RELOAD"`

	// Watch contains paths to watch for changes.
	Watch []string `json:"watch,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Lang: "en",
		Server: ServerConfig{
			Port: DefaultPort,
			Host: DefaultHost,
		},
		Render: RenderConfig{
			ActionBodyLimit: 1 << 20,
		},
		Static: StaticConfig{
			Dir:    "public",
			Prefix: "/static/",
		},
		Export: ExportConfig{
			Output: DefaultOutput,
		},
		Dev: DevConfig{
			LiveReload: true,
			Watch:      []string{"app", "public"},
		},
	}
}

// Load reads configuration from the specified directory, falling back to
// defaults when no treeline.json exists there. Environment overrides apply
// in both cases.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := New()
			if err := cfg.applyEnv(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, errors.New("T2001").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("T2001").
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check for trailing commas and unquoted keys")
	}
	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overlays TREELINE_* environment variables onto the config.
func (c *Config) applyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return errors.New("T2002").Wrap(err)
	}
	return nil
}

// applyDefaults fills in defaults for fields the file left empty.
func (c *Config) applyDefaults() {
	if c.Lang == "" {
		c.Lang = "en"
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Render.ActionBodyLimit == 0 {
		c.Render.ActionBodyLimit = 1 << 20
	}
	if c.Static.Dir == "" {
		c.Static.Dir = "public"
	}
	if c.Static.Prefix == "" {
		c.Static.Prefix = "/static/"
	}
	if c.Export.Output == "" {
		c.Export.Output = DefaultOutput
	}
	if c.Dev.Watch == nil {
		c.Dev.Watch = []string{"app", "public"}
	}
}

// Validate checks the configuration for values no server can run with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("T2002").
			WithDetail("server.port must be between 0 and 65535, got " + strconv.Itoa(c.Server.Port))
	}
	if c.Render.DefaultRevalidate < 0 {
		return errors.New("T2002").
			WithDetail("render.defaultRevalidate cannot be negative")
	}
	return nil
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("T2001").Wrap(err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("T2001").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// Address returns the host:port the server binds to.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// OutputPath returns the absolute path to the export output directory.
func (c *Config) OutputPath() string {
	if filepath.IsAbs(c.Export.Output) {
		return c.Export.Output
	}
	return filepath.Join(c.Dir(), c.Export.Output)
}

// StaticPath returns the absolute path to the static files directory.
func (c *Config) StaticPath() string {
	if filepath.IsAbs(c.Static.Dir) {
		return c.Static.Dir
	}
	return filepath.Join(c.Dir(), c.Static.Dir)
}

// Exists reports whether a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up from startDir to the directory containing
// treeline.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.Newf(errors.CategoryConfig,
				"no %s found in %s or any parent directory", ConfigFileName, startDir)
		}
		dir = parent
	}
}
