//go:build !linux && !windows && !darwin

package locator

import (
	"fmt"
	"os"
	"runtime"

	"github.com/VladMinzatu/objlocate/internal/procmaps"
)

// NewStrategy returns the named strategy for the running process. The empty
// name selects the platform's fastest strategy. Table options are ignored by
// strategies that keep no table.
func NewStrategy(name string, opts ...TableOption) (Strategy, error) {
	switch name {
	case "", StrategyDescriptor:
		reader, err := procmaps.NewProcfsReader("/proc", os.Getpid())
		if err != nil {
			return nil, fmt.Errorf("%s is only supported with procfs mounted at /proc: %w", runtime.GOOS, err)
		}
		return NewDescriptorStrategy(NewMapsDescriptorSource(reader)), nil
	}
	return nil, fmt.Errorf("strategy %q is not available on %s", name, runtime.GOOS)
}
