// Package imagebase reads the link-time base address of executables and
// shared libraries from their on-disk headers.
package imagebase

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

type Provider interface {
	ImageBase(path string) (uint64, error)
}

// FileProvider opens the object at path and decodes its preferred load
// address. ELF, PE and Mach-O (thin and universal) images are supported.
type FileProvider struct {
	root     string
	pageSize uint64
}

type Option func(*FileProvider)

// WithRoot resolves every object path below root, e.g. "/proc/<pid>/root"
// for objects mapped by a process in another mount namespace.
func WithRoot(root string) Option {
	return func(p *FileProvider) {
		p.root = root
	}
}

// WithPageSize overrides the page size used to align ELF segment addresses.
func WithPageSize(size uint64) Option {
	return func(p *FileProvider) {
		if size != 0 && size&(size-1) == 0 {
			p.pageSize = size
		}
	}
}

func NewFileProvider(opts ...Option) *FileProvider {
	p := &FileProvider{pageSize: uint64(os.Getpagesize())}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *FileProvider) ImageBase(path string) (uint64, error) {
	if path == "" {
		return 0, fmt.Errorf("image base: empty path: %w", ErrNotFound)
	}
	fsPath := path
	if p.root != "" {
		fsPath = filepath.Join(p.root, path)
	}
	f, err := os.Open(fsPath)
	if err != nil {
		return 0, openError(path, err)
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return 0, parseError(path, "header", err)
	}

	var base uint64
	switch {
	case bytes.Equal(magic[:], []byte("\x7fELF")):
		base, err = elfImageBase(f, p.pageSize)
	case magic[0] == 'M' && magic[1] == 'Z':
		base, err = peImageBase(f)
	case isMachO(magic):
		base, err = machoImageBase(f)
	case isFatMachO(magic):
		base, err = fatMachOImageBase(f)
	default:
		return 0, fmt.Errorf("image base of %s: %w (magic %x)", path, ErrUnknownFormat, magic)
	}
	if err != nil {
		return 0, fmt.Errorf("image base of %s: %w", path, err)
	}
	slog.Debug("Read image base", "path", path, "base", fmt.Sprintf("%#x", base))
	return base, nil
}

func isMachO(magic [4]byte) bool {
	switch binary.BigEndian.Uint32(magic[:]) {
	case 0xfeedface, 0xfeedfacf, 0xcefaedfe, 0xcffaedfe:
		return true
	}
	return false
}

func isFatMachO(magic [4]byte) bool {
	return binary.BigEndian.Uint32(magic[:]) == 0xcafebabe
}
