package einvoice

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jhoicas/pos-einvoice-cr/internal/domain"
)

// Registry tabla de backends FE por nombre.
type Registry struct {
	mu          sync.RWMutex
	backends    map[string]Backend
	defaultName string
}

// NewRegistry crea un registro vacío.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register agrega un backend. El primero registrado queda como predeterminado.
func (r *Registry) Register(b Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := b.Name()
	if name == "" {
		return fmt.Errorf("%w: backend sin nombre", domain.ErrInvalidInput)
	}
	if _, exists := r.backends[name]; exists {
		return fmt.Errorf("%w: '%s'", ErrBackendAlreadyRegistered, name)
	}
	r.backends[name] = b
	if r.defaultName == "" {
		r.defaultName = name
	}
	return nil
}

// Get devuelve el backend por nombre, o el predeterminado si name está vacío.
func (r *Registry) Get(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultName
		if name == "" {
			return nil, fmt.Errorf("%w: no hay backend FE predeterminado", domain.ErrNotFound)
		}
	}
	b, exists := r.backends[name]
	if !exists {
		return nil, fmt.Errorf("%w: backend FE '%s'", domain.ErrNotFound, name)
	}
	return b, nil
}

// SetDefault cambia el backend predeterminado.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[name]; !exists {
		return fmt.Errorf("%w: backend FE '%s'", domain.ErrNotFound, name)
	}
	r.defaultName = name
	return nil
}

// List nombres registrados en orden alfabético.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chain resuelve una lista ordenada de nombres (configuración FE_BACKENDS).
// Vacía = solo el predeterminado.
func (r *Registry) Chain(names []string) ([]Backend, error) {
	if len(names) == 0 {
		b, err := r.Get("")
		if err != nil {
			return nil, err
		}
		return []Backend{b}, nil
	}
	chain := make([]Backend, 0, len(names))
	for _, n := range names {
		b, err := r.Get(n)
		if err != nil {
			return nil, err
		}
		chain = append(chain, b)
	}
	return chain, nil
}
