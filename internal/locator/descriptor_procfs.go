//go:build !windows

package locator

import (
	"github.com/VladMinzatu/objlocate/internal/procmaps"
)

// MapsDescriptorSource rereads the process maps on every query.
type MapsDescriptorSource struct {
	reader procmaps.RegionReader
}

func NewMapsDescriptorSource(reader procmaps.RegionReader) *MapsDescriptorSource {
	return &MapsDescriptorSource{reader: reader}
}

func (s *MapsDescriptorSource) Describe(addr Address) (Descriptor, error) {
	regions, err := s.reader.ReadRegions()
	if err != nil {
		return Descriptor{}, err
	}
	obj, ok := procmaps.NewTable(regions).Find(uint64(addr))
	if !ok {
		return Descriptor{}, ErrNotOwned
	}
	return Descriptor{Path: obj.Path, FileBase: Address(obj.Base)}, nil
}
