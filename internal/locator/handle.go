package locator

import (
	"log/slog"
)

// Handle is an opaque module handle whose value is the module's runtime base
// address, as with Windows HMODULEs.
type Handle uintptr

type ModuleNamer interface {
	ModuleFileName(h Handle) (string, error)
}

type ModuleHandles interface {
	ModuleNamer
	ModuleFromAddress(addr Address) (Handle, error)
}

// HandleStrategy resolves an address to a module handle and translates the
// handle to a path through a PathCache.
type HandleStrategy struct {
	modules ModuleHandles
	paths   *PathCache
}

// NewHandleStrategy builds a strategy over modules. A nil cache gets a fresh
// one backed by modules.
func NewHandleStrategy(modules ModuleHandles, paths *PathCache) *HandleStrategy {
	if paths == nil {
		paths = NewPathCache(modules)
	}
	return &HandleStrategy{modules: modules, paths: paths}
}

func (s *HandleStrategy) Lookup(addr Address) (Object, bool) {
	h, err := s.modules.ModuleFromAddress(addr)
	if err != nil {
		slog.Warn("Failed to find module for address", "addr", addr, "error", err)
		return Object{}, false
	}
	return Object{Path: s.paths.PathFor(h), Base: Address(h)}, true
}
