package gateway

import (
	"sort"
	"strings"
)

// Registry looks gateways up by provider name
type Registry struct {
	gateways map[string]PaymentGateway
}

// NewRegistry builds a registry from the given gateways
func NewRegistry(gateways ...PaymentGateway) *Registry {
	r := &Registry{gateways: make(map[string]PaymentGateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[strings.ToLower(g.Name())] = g
	}
	return r
}

// Get returns the gateway registered under name
func (r *Registry) Get(name string) (PaymentGateway, bool) {
	g, ok := r.gateways[strings.ToLower(name)]
	return g, ok
}

// Names lists the registered providers in a stable order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
