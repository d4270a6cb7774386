// Package adapters resolves a gateway name from a webhook route to the
// adapter that verifies and parses that gateway's payloads.
package adapters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smallbiznis/glazeops/internal/payment/domain"
)

type Registry struct {
	byGateway map[string]domain.AdapterFactory
}

// NewRegistry panics when two factories claim the same gateway; that is a
// wiring mistake, not a runtime condition.
func NewRegistry(factories ...domain.AdapterFactory) *Registry {
	r := &Registry{byGateway: make(map[string]domain.AdapterFactory, len(factories))}
	for _, f := range factories {
		if f == nil {
			continue
		}
		gateway := normalize(f.Provider())
		if gateway == "" {
			continue
		}
		if _, dup := r.byGateway[gateway]; dup {
			panic(fmt.Sprintf("payment adapter registered twice: %s", gateway))
		}
		r.byGateway[gateway] = f
	}
	return r
}

func (r *Registry) ProviderExists(gateway string) bool {
	_, ok := r.factory(gateway)
	return ok
}

// Gateways lists the registered gateway names in order.
func (r *Registry) Gateways() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.byGateway))
	for gateway := range r.byGateway {
		out = append(out, gateway)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) NewAdapter(gateway string, cfg domain.AdapterConfig) (domain.PaymentAdapter, error) {
	f, ok := r.factory(gateway)
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	cfg.Gateway = normalize(gateway)
	return f.NewAdapter(cfg)
}

func (r *Registry) factory(gateway string) (domain.AdapterFactory, bool) {
	if r == nil {
		return nil, false
	}
	f, ok := r.byGateway[normalize(gateway)]
	return f, ok
}

func normalize(gateway string) string {
	return strings.ToLower(strings.TrimSpace(gateway))
}
