package imagebase

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrNotFound      = errors.New("object file not found")
	ErrPermission    = errors.New("object file not readable")
	ErrMalformed     = errors.New("malformed object file")
	ErrUnknownFormat = errors.New("unknown object file format")
	ErrNoLoadSegment = errors.New("object file has no loadable segment")
)

func openError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("image base of %s: %w: %w", path, ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("image base of %s: %w: %w", path, ErrPermission, err)
	}
	return fmt.Errorf("image base of %s: %w", path, err)
}

func parseError(path, format string, err error) error {
	return fmt.Errorf("image base of %s: %w: %s: %w", path, ErrMalformed, format, err)
}
