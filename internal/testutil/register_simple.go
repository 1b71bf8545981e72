package testutil

import "github.com/specialistvlad/stagegrid/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single handler.
type SimpleModule struct {
	HandlerName string
	Handler     registry.Handler
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.HandlerName != "" && m.Handler != nil {
		r.RegisterHandler(m.HandlerName, m.Handler)
	}
}

// Modules combines several modules into one.
type Modules []registry.Module

// Register implements the registry.Module interface.
func (ms Modules) Register(r *registry.Registry) {
	for _, m := range ms {
		m.Register(r)
	}
}
