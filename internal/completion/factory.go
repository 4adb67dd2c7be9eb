// Package completion holds the provider-neutral pieces of the completion
// client: the provider registry, fallback and rate limiting.
package completion

import (
	"fmt"

	"rxscan/internal/config"
	"rxscan/internal/port"
)

// ProviderFactory creates a CompletionClient from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig) (port.CompletionClient, error)

// registry of provider factories, populated explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewClient creates a CompletionClient from a provider config using the registered factory.
func NewClient(cfg *config.ProviderConfig) (port.CompletionClient, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown completion provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
