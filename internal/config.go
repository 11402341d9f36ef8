package internal

import (
	"fmt"
	"log/slog"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/jwintz/obsidianp-sub000/internal/collection"
	"github.com/jwintz/obsidianp-sub000/internal/embed"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app" json:"app"`
	Vault  VaultConfig       `yaml:"vault" json:"vault"`
	Build  BuildConfig       `yaml:"build" json:"build"`
	SQLite SQLiteConfig      `yaml:"sqlite" json:"sqlite"`
	Auth   AuthConfig        `yaml:"auth" json:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Build.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" json:"log_level"`
	HTTP     HTTPConfig `yaml:"http" json:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" json:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

var extensionRe = regexp.MustCompile(`^\.[A-Za-z0-9]+$`)

// VaultConfig describes where the vault lives and which files in it matter.
type VaultConfig struct {
	Path string `yaml:"path" json:"path"`
	// CollectionExtensions mark files holding collection definitions.
	CollectionExtensions []string `yaml:"collection_extensions" json:"collection_extensions"`
	// IgnoreDirs are directory names skipped while listing, in addition to
	// hidden directories.
	IgnoreDirs []string `yaml:"ignore_dirs" json:"ignore_dirs"`
	// Ignore holds gitignore-style patterns, applied together with the
	// vault's own .gitignore.
	Ignore []string `yaml:"ignore" json:"ignore"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.CollectionExtensions, validation.Required,
			validation.Each(validation.Match(extensionRe).Error("must look like .base"))),
	)
}

// Extensions returns every file extension the vault listing accepts.
func (c *VaultConfig) Extensions() []string {
	return append([]string{".md"}, c.CollectionExtensions...)
}

// BuildConfig tunes a graph build.
type BuildConfig struct {
	// Workers bounds ingest and query concurrency. Zero means GOMAXPROCS.
	Workers       int    `yaml:"workers" json:"workers"`
	MaxEmbedDepth int    `yaml:"max_embed_depth" json:"max_embed_depth"`
	OutputPath    string `yaml:"output_path" json:"output_path"`
	// LinkPrefix is prepended to document IDs in rendered links.
	LinkPrefix string `yaml:"link_prefix" json:"link_prefix"`
}

// Validate validates the build configuration.
func (c *BuildConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(0)),
		validation.Field(&c.MaxEmbedDepth, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.OutputPath, validation.Required),
	)
}

// SQLiteConfig holds the optional search index location. An empty path
// disables the index.
type SQLiteConfig struct {
	Path string `yaml:"path" json:"path"`
}

// Enabled reports whether a search index should be opened.
func (c *SQLiteConfig) Enabled() bool {
	return c.Path != ""
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Length(0, 4096)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" json:"mode"`
	Token string `yaml:"token" json:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:                 "./vault",
			CollectionExtensions: []string{collection.DefaultExtension},
		},
		Build: BuildConfig{
			MaxEmbedDepth: embed.DefaultMaxDepth,
			OutputPath:    "./graph.json",
			LinkPrefix:    "/",
		},
		SQLite: SQLiteConfig{
			Path: "./vaultgraph.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
