package board

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/warpmetrics/warp-coder/internal/config"
)

// Factory builds a board adapter from configuration and secrets.
type Factory func(cfg *config.Config, secrets *config.Secrets) (Adapter, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds an adapter factory for the provider name. Concrete
// providers register themselves from their own packages.
func Register(provider string, f Factory) error {
	if f == nil {
		return fmt.Errorf("board provider %q: factory is nil", provider)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[provider]; exists {
		return fmt.Errorf("board provider %q already registered", provider)
	}

	registry[provider] = f
	return nil
}

// New builds the adapter selected by cfg.Board.Provider.
func New(cfg *config.Config, secrets *config.Secrets) (Adapter, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Board.Provider]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf(
			"board provider %q is not bundled with this binary (available: %s); provider adapters register themselves at startup",
			cfg.Board.Provider, providerList())
	}
	return factory(cfg, secrets)
}

func providerList() string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if len(registry) == 0 {
		return "none"
	}
	providers := make([]string, 0, len(registry))
	for provider := range registry {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	return strings.Join(providers, ", ")
}

// ResetRegistry clears provider registrations (for tests).
func ResetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Factory)
}
