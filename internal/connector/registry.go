package connector

import (
	"fmt"
	"sort"

	"github.com/payorch/connector-gateway/internal/domain"
)

// Registry resolves connectors by name. It is built once at startup and
// never mutated afterwards, so lookups need no locking. The gateway keeps
// one registry per payment-method representation.
type Registry[PM domain.PaymentMethodData] struct {
	connectors map[string]Connector[PM]
}

// NewRegistry indexes the given connectors. Duplicate or empty names are a
// wiring bug and fail construction.
func NewRegistry[PM domain.PaymentMethodData](connectors ...Connector[PM]) (*Registry[PM], error) {
	byName := make(map[string]Connector[PM], len(connectors))
	for _, c := range connectors {
		name := c.Name()
		if name == "" {
			return nil, fmt.Errorf("connector with empty name")
		}
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("duplicate connector %q", name)
		}
		byName[name] = c
	}
	return &Registry[PM]{connectors: byName}, nil
}

// Lookup returns the named connector or a classified error the transport
// layer can map to a 404.
func (r *Registry[PM]) Lookup(name string) (Connector[PM], error) {
	c, ok := r.connectors[name]
	if !ok {
		return nil, domain.NewConnectorError(domain.ErrNotImplemented, name, "", "unknown connector", nil)
	}
	return c, nil
}

// Names lists the registered connectors in stable order.
func (r *Registry[PM]) Names() []string {
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
