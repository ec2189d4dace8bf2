//go:build darwin && !cgo

package locator

import (
	"errors"
)

func newLoaderSource() (DescriptorSource, error) {
	return nil, errors.New("darwin lookups use dladdr and require a cgo-enabled build")
}
