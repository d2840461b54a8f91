package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for copydeck.
type Config struct {
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	Provider ProviderConfig `toml:"provider"`
	Database DatabaseConfig `toml:"database"`
	Images   ImageConfig    `toml:"images"`
	Secrets  SecretsConfig  `toml:"secrets"`
	API      APIConfig      `toml:"api"`
}

// ProviderConfig holds settings for the design file provider API.
type ProviderConfig struct {
	BaseURL        string `toml:"base_url"`        // defaults to the public Figma API
	TimeoutSeconds int    `toml:"timeout_seconds"` // per-request timeout; defaults to 30
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// ImageConfig represents configuration for the frame preview image store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ImageConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"

	// Filesystem-specific fields (only used when Type == "filesystem")
	Dir string `toml:"dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`   // optional, for S3-compatible stores
	S3AccessKey string `toml:"s3_access_key,omitempty"` // optional, default credential chain when unset
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

// SecretsConfig holds paths to the age key pair used to encrypt API
// tokens at rest.
type SecretsConfig struct {
	Type           string `toml:"type"` // "age" (default) or "plain"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// APIConfig holds settings for the local HTTP server.
type APIConfig struct {
	Addr string `toml:"addr"` // defaults to 127.0.0.1:8790
}

// Defaults applied when fields are left unset.
const (
	DefaultProviderBaseURL = "https://api.figma.com"
	DefaultTimeoutSeconds  = 30
	DefaultAPIAddr         = "127.0.0.1:8790"
)

// NewConfig creates a new Config with the provided base directory and default values.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Provider: ProviderConfig{
			BaseURL:        DefaultProviderBaseURL,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Images: ImageConfig{
			Type: "filesystem",
			Dir:  filepath.Join(baseDir, "images"),
		},
		Secrets: SecretsConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "copydeck.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "copydeck.key"),
		},
		API: APIConfig{
			Addr: DefaultAPIAddr,
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = DefaultProviderBaseURL
	}
	if cfg.Provider.TimeoutSeconds <= 0 {
		cfg.Provider.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.API.Addr == "" {
		cfg.API.Addr = DefaultAPIAddr
	}
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
