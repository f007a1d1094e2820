package calc

import (
	"sort"

	"github.com/roach88/fichas/internal/ficha"
)

// DefaultEngine is the engine used when a request names none.
const DefaultEngine = "cacao-convencional"

// Registry maps engine keys to Python module entry points.
type Registry map[string]string

// DefaultRegistry returns the engines shipped with the calculators package.
func DefaultRegistry() Registry {
	return Registry{
		DefaultEngine: "calculadoras.cacao_convencional.ejecutar",
	}
}

// Module returns the entry point for key.
func (r Registry) Module(key string) (string, error) {
	module, ok := r[key]
	if !ok || module == "" {
		return "", ficha.NewValidationError("motor", "unknown calculation engine %q", key)
	}
	return module, nil
}

// Keys returns the registered engine keys in sorted order.
func (r Registry) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
