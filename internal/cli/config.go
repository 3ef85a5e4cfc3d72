package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// CLIConfig holds CLI configuration persisted to disk.
type CLIConfig struct {
	ServerURL string `yaml:"server_url,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	// SellerID is the seller behind APIKey, recorded at login. Local
	// commands such as 'keys create' use it when --seller is omitted.
	SellerID string `yaml:"seller_id,omitempty"`
	// Format is the default for --format.
	Format string `yaml:"format,omitempty"`
}

// configPath returns the path to the CLI config file. LISTINGS_CONFIG
// overrides the default location.
func configPath() (string, error) {
	if v := os.Getenv("LISTINGS_CONFIG"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "listings", "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// saveConfig writes the CLI config to disk.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// getServerURL returns the server URL from env var, config, or default.
func getServerURL() string {
	if v := os.Getenv("LISTINGS_SERVER_URL"); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err == nil && cfg.ServerURL != "" {
		return cfg.ServerURL
	}
	return "http://localhost:8080"
}

// getAPIKey returns the API key from env var or config.
func getAPIKey() string {
	if v := os.Getenv("LISTINGS_API_KEY"); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err == nil {
		return cfg.APIKey
	}
	return ""
}

// getSeller returns the seller from env var or config.
func getSeller() string {
	if v := os.Getenv("LISTINGS_SELLER"); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err == nil {
		return cfg.SellerID
	}
	return ""
}

// applyFormatDefault sets the output format from the config when --format
// was not given, and rejects unknown formats.
func applyFormatDefault(cmd *cobra.Command) error {
	if f := cmd.Flags().Lookup("format"); f != nil && !f.Changed {
		if cfg, err := loadConfig(); err == nil && cfg.Format != "" {
			flagFormat = cfg.Format
		}
	}
	switch flagFormat {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", flagFormat)
	}
}
