//go:build darwin && cgo

package locator

/*
#include <dlfcn.h>
#include <stdint.h>

static int describe_address(uintptr_t addr, Dl_info *info) {
	return dladdr((const void *)addr, info);
}
*/
import "C"

// dladdrSource asks dyld which image contains an address. dli_fbase is the
// image's mach header, the runtime address of its __TEXT segment.
type dladdrSource struct{}

func newLoaderSource() (DescriptorSource, error) {
	return dladdrSource{}, nil
}

func (dladdrSource) Describe(addr Address) (Descriptor, error) {
	var info C.Dl_info
	if C.describe_address(C.uintptr_t(addr), &info) == 0 || info.dli_fname == nil {
		return Descriptor{}, ErrNotOwned
	}
	return Descriptor{
		Path:     C.GoString(info.dli_fname),
		FileBase: Address(uintptr(info.dli_fbase)),
	}, nil
}
