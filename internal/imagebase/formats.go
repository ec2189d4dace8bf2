package imagebase

import (
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"fmt"
	"io"
	"runtime"
)

// elfImageBase returns the page-aligned virtual address of the lowest
// PT_LOAD segment. The loader maps that page at the object's runtime base.
func elfImageBase(r io.ReaderAt, pageSize uint64) (uint64, error) {
	ef, err := elf.NewFile(r)
	if err != nil {
		return 0, fmt.Errorf("%w: elf: %w", ErrMalformed, err)
	}
	defer ef.Close()

	found := false
	var minVaddr uint64
	for _, prog := range ef.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if !found || prog.Vaddr < minVaddr {
			minVaddr = prog.Vaddr
			found = true
		}
	}
	if !found {
		return 0, ErrNoLoadSegment
	}
	return minVaddr &^ (pageSize - 1), nil
}

func peImageBase(r io.ReaderAt) (uint64, error) {
	pf, err := pe.NewFile(r)
	if err != nil {
		return 0, fmt.Errorf("%w: pe: %w", ErrMalformed, err)
	}
	defer pf.Close()

	switch oh := pf.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		return uint64(oh.ImageBase), nil
	case *pe.OptionalHeader64:
		return oh.ImageBase, nil
	}
	return 0, fmt.Errorf("%w: pe: missing optional header", ErrMalformed)
}

func machoImageBase(r io.ReaderAt) (uint64, error) {
	mf, err := macho.NewFile(r)
	if err != nil {
		return 0, fmt.Errorf("%w: macho: %w", ErrMalformed, err)
	}
	defer mf.Close()
	return machoTextBase(mf)
}

func fatMachOImageBase(r io.ReaderAt) (uint64, error) {
	ff, err := macho.NewFatFile(r)
	if err != nil {
		return 0, fmt.Errorf("%w: fat macho: %w", ErrMalformed, err)
	}
	defer ff.Close()
	if len(ff.Arches) == 0 {
		return 0, ErrNoLoadSegment
	}
	want := machoCPU(runtime.GOARCH)
	for _, arch := range ff.Arches {
		if arch.Cpu == want {
			return machoTextBase(arch.File)
		}
	}
	return machoTextBase(ff.Arches[0].File)
}

func machoTextBase(mf *macho.File) (uint64, error) {
	if seg := mf.Segment("__TEXT"); seg != nil {
		return seg.Addr, nil
	}
	return 0, ErrNoLoadSegment
}

func machoCPU(goarch string) macho.Cpu {
	switch goarch {
	case "amd64":
		return macho.CpuAmd64
	case "arm64":
		return macho.CpuArm64
	case "386":
		return macho.Cpu386
	case "arm":
		return macho.CpuArm
	}
	return 0
}
