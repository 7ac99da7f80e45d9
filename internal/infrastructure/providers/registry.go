package providers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jhoicas/facturacion-electronica/internal/domain"
)

// Registry proveedores disponibles indexados por código (FEG, CUSTOM, DIAN_DIRECT, ALEGRA).
type Registry struct {
	providers map[string]Provider
}

// NewRegistry registra los proveedores recibidos; los nil o sin nombre se ignoran.
// Si dos comparten código gana el último.
func NewRegistry(list ...Provider) *Registry {
	registry := &Registry{providers: map[string]Provider{}}
	for _, p := range list {
		if p == nil {
			continue
		}
		name := normalize(p.Name())
		if name == "" {
			continue
		}
		registry.providers[name] = p
	}
	return registry
}

// Exists indica si hay un proveedor registrado con ese código.
func (r *Registry) Exists(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.providers[normalize(name)]
	return ok
}

// Get devuelve el proveedor o domain.ErrUnknownProvider.
func (r *Registry) Get(name string) (Provider, error) {
	if r == nil {
		return nil, domain.ErrUnknownProvider
	}
	p, ok := r.providers[normalize(name)]
	if !ok {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: config.provider vacío", domain.ErrUnknownProvider)
		}
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, name)
	}
	return p, nil
}

// Names códigos registrados, ordenados.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
