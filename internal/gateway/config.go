package gateway

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/nightdesk/nightdesk/internal/platform/config"
)

// defaultConfigPath locates the gateway config file under the user home.
const defaultConfigPath = "~/.nightdesk/gateway.json"

// configPathEnv overrides the gateway config file location.
const configPathEnv = "NIGHTDESK_GATEWAY_CONFIG"

// FileConfig mirrors the gateway daemon's JSON config file. Only the fields
// nightdesk reads are modeled.
type FileConfig struct {
	Gateway struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"gateway"`
	Models struct {
		Providers map[string]Provider `json:"providers"`
	} `json:"models"`
}

// Provider describes one model provider entry in the gateway config.
type Provider struct {
	BaseURL string  `json:"baseUrl"`
	Models  []Model `json:"models"`
}

// Model describes one model entry under a provider.
type Model struct {
	ID string `json:"id"`
}

// ConfigPath returns the gateway config file location, honoring the
// NIGHTDESK_GATEWAY_CONFIG override.
func ConfigPath() string {
	if path := strings.TrimSpace(os.Getenv(configPathEnv)); path != "" {
		return config.ExpandHome(path)
	}
	return config.ExpandHome(defaultConfigPath)
}

// LoadConfigFile parses the gateway config file at path.
func LoadConfigFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read gateway config: %w", err)
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse gateway config: %w", err)
	}
	return cfg, nil
}
