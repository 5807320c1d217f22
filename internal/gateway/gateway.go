package gateway

import (
	"net/http"

	"coachpay/internal/core/domain"
	"coachpay/internal/core/ports"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Registry maps a gateway id to its adapter. Adapter selection is a plain
// lookup; the reconciliation algorithm itself never varies per gateway.
type Registry map[domain.PaymentGateway]ports.GatewayAdapter

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...ports.GatewayAdapter) Registry {
	r := make(Registry, len(adapters))
	for _, a := range adapters {
		r[a.Gateway()] = a
	}
	return r
}

// Lookup returns the adapter for a gateway id.
func (r Registry) Lookup(gw domain.PaymentGateway) (ports.GatewayAdapter, bool) {
	a, ok := r[gw]
	return a, ok
}
