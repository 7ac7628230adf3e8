package provider

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/waabox/azdeck/internal/domain"
)

// Registry maps service host patterns to PipelineProvider implementations.
type Registry struct {
	entries []entry
}

type entry struct {
	host     string
	provider domain.PipelineProvider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register associates a host pattern (e.g., "dev.azure.com") with a provider.
// A pattern matches the host itself and any of its subdomains.
func (r *Registry) Register(host string, p domain.PipelineProvider) {
	r.entries = append(r.entries, entry{host: strings.ToLower(host), provider: p})
}

// Detect returns the provider serving the host of the given URL. Both
// URLs and SCP-like SSH remotes (user@host:path) are accepted. Providers are
// tried in registration order.
func (r *Registry) Detect(rawURL string) (domain.PipelineProvider, error) {
	host := hostOf(rawURL)
	if host == "" {
		return nil, fmt.Errorf("no host in %q", rawURL)
	}
	for _, e := range r.entries {
		if host == e.host || strings.HasSuffix(host, "."+e.host) {
			return e.provider, nil
		}
	}
	return nil, fmt.Errorf("no provider found for remote: %s", rawURL)
}

func hostOf(rawURL string) string {
	if strings.Contains(rawURL, "://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return ""
		}
		return strings.ToLower(u.Hostname())
	}
	userHost, _, _ := strings.Cut(rawURL, ":")
	if _, host, ok := strings.Cut(userHost, "@"); ok {
		return strings.ToLower(host)
	}
	return strings.ToLower(userHost)
}
