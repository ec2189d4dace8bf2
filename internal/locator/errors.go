package locator

import (
	"errors"
	"fmt"
)

// ErrNotOwned is reported by a DescriptorSource when no loaded object
// contains the queried address.
var ErrNotOwned = errors.New("address not owned by any loaded object")

// ImageBaseLookupError is returned by deferred resolution when the static
// base of the frame's object cannot be determined.
type ImageBaseLookupError struct {
	Path string
	Err  error
}

func (e *ImageBaseLookupError) Error() string {
	return fmt.Sprintf("image base lookup for %q failed: %v", e.Path, e.Err)
}

func (e *ImageBaseLookupError) Unwrap() error {
	return e.Err
}
