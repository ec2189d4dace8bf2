package locator

import (
	"errors"
	"log/slog"
)

// Descriptor is what a per-query loader introspection call reports for an
// address: the object's path and the address the loader mapped it at.
type Descriptor struct {
	Path       string
	Executable bool
	FileBase   Address
}

type DescriptorSource interface {
	Describe(addr Address) (Descriptor, error)
}

// DescriptorStrategy performs one introspection call per lookup. It is slower
// than TableStrategy but never serves stale data.
type DescriptorStrategy struct {
	source DescriptorSource
}

func NewDescriptorStrategy(source DescriptorSource) *DescriptorStrategy {
	return &DescriptorStrategy{source: source}
}

func (s *DescriptorStrategy) Lookup(addr Address) (Object, bool) {
	d, err := s.source.Describe(addr)
	if err != nil {
		if !errors.Is(err, ErrNotOwned) {
			slog.Warn("Failed to describe address", "addr", addr, "error", err)
		}
		return Object{}, false
	}
	return Object{Path: d.Path, Executable: d.Executable, Base: d.FileBase}, true
}
