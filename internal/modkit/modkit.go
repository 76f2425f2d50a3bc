// Package modkit provides module wiring and core deps
package modkit

// Module is the common surface for service modules
// keep this tiny so modules stay decoupled
type Module interface {
	// Ports returns a module specific port set for cross wiring
	Ports() any

	// Name returns the module name
	Name() string
}

// PortsAs returns m's ports as T or panics on wiring mistakes
func PortsAs[T any](m Module) T {
	p, ok := m.Ports().(T)
	if !ok {
		panic("modkit: module " + m.Name() + " does not expose the requested ports")
	}
	return p
}
