package llm

import (
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nightdesk/nightdesk/internal/gateway"
)

const (
	endpointEnv = "NIGHTDESK_LLM_ENDPOINT"
	modelEnv    = "NIGHTDESK_LLM_MODEL"

	defaultEndpoint = "http://localhost:4000"
	defaultModel    = "claude-sonnet-4-5"

	// discoveryTTL bounds how long a resolved endpoint/model pair is reused
	// before the gateway config is consulted again.
	discoveryTTL = 5 * time.Minute
)

// Endpoint is a resolved completion endpoint and model.
type Endpoint struct {
	BaseURL string
	Model   string
}

type discoveryCache struct {
	mu       sync.Mutex
	resolved Endpoint
	at       time.Time
}

var cache discoveryCache

// Discover resolves the completion endpoint and model, caching the result
// for five minutes. Resolution order: environment overrides, the gateway
// config file's first provider with a base URL, then local defaults.
func Discover() Endpoint {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.resolved.BaseURL != "" && time.Since(cache.at) < discoveryTTL {
		return cache.resolved
	}
	resolved := resolve()
	cache.resolved = resolved
	cache.at = time.Now()
	return resolved
}

// ResetDiscovery clears the cached endpoint. Intended for tests.
func ResetDiscovery() {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	cache.resolved = Endpoint{}
	cache.at = time.Time{}
}

func resolve() Endpoint {
	resolved := Endpoint{
		BaseURL: defaultEndpoint,
		Model:   defaultModel,
	}

	if cfg, err := gateway.LoadConfigFile(gateway.ConfigPath()); err == nil {
		if fromFile, ok := endpointFromConfig(cfg); ok {
			resolved = fromFile
		}
	}

	if endpoint := strings.TrimSpace(os.Getenv(endpointEnv)); endpoint != "" {
		resolved.BaseURL = strings.TrimRight(endpoint, "/")
	}
	if model := strings.TrimSpace(os.Getenv(modelEnv)); model != "" {
		resolved.Model = model
	}
	return resolved
}

// endpointFromConfig picks the first provider with a base URL, preferring a
// "sonnet" model id over whichever id comes first.
func endpointFromConfig(cfg gateway.FileConfig) (Endpoint, bool) {
	names := make([]string, 0, len(cfg.Models.Providers))
	for name := range cfg.Models.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		provider := cfg.Models.Providers[name]
		baseURL := strings.TrimSpace(provider.BaseURL)
		if baseURL == "" {
			continue
		}
		resolved := Endpoint{
			BaseURL: strings.TrimRight(baseURL, "/"),
			Model:   defaultModel,
		}
		for _, model := range provider.Models {
			id := strings.TrimSpace(model.ID)
			if id == "" {
				continue
			}
			if resolved.Model == defaultModel {
				resolved.Model = id
			}
			if strings.Contains(strings.ToLower(id), "sonnet") {
				resolved.Model = id
				break
			}
		}
		return resolved, true
	}
	return Endpoint{}, false
}
