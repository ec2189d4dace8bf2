package locator

import (
	"fmt"
)

// NewStrategy returns the named strategy for the running process. The empty
// name selects the platform's fastest strategy. Table options are ignored by
// strategies that keep no table.
func NewStrategy(name string, opts ...TableOption) (Strategy, error) {
	switch name {
	case "", StrategyDescriptor:
		source, err := newLoaderSource()
		if err != nil {
			return nil, err
		}
		return NewDescriptorStrategy(source), nil
	}
	return nil, fmt.Errorf("strategy %q is not available on darwin", name)
}
