package locator

import (
	"fmt"
	"os"

	"github.com/VladMinzatu/objlocate/internal/procmaps"
)

// NewStrategy returns the named strategy for the running process. The empty
// name selects the platform's fastest strategy. Table options are ignored by
// strategies that keep no table.
func NewStrategy(name string, opts ...TableOption) (Strategy, error) {
	switch name {
	case "", StrategyTable:
		s, err := NewTableStrategy(procmaps.NewProcMapsReader(os.Getpid()), opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case StrategyDescriptor:
		reader, err := procmaps.NewProcfsReader("/proc", os.Getpid())
		if err != nil {
			return nil, err
		}
		return NewDescriptorStrategy(NewMapsDescriptorSource(reader)), nil
	}
	return nil, fmt.Errorf("strategy %q is not available on linux", name)
}
