package locator

import (
	"fmt"
)

// NewStrategy returns the named strategy for the running process. The empty
// name selects the platform's fastest strategy. Table options are ignored by
// strategies that keep no table.
func NewStrategy(name string, opts ...TableOption) (Strategy, error) {
	switch name {
	case "", StrategyHandle:
		return NewHandleStrategy(windowsModules{}, nil), nil
	}
	return nil, fmt.Errorf("strategy %q is not available on windows", name)
}
