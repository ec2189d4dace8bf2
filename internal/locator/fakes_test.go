package locator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/VladMinzatu/objlocate/internal/procmaps"
)

var errNoImage = errors.New("no such image")

type fakeImages struct {
	mu    sync.Mutex
	bases map[string]uint64
	calls int
}

func (f *fakeImages) ImageBase(path string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if base, ok := f.bases[path]; ok {
		return base, nil
	}
	return 0, fmt.Errorf("%s: %w", path, errNoImage)
}

type fakeRange struct {
	start, end Address
	obj        Object
}

type fakeStrategy struct {
	ranges []fakeRange
}

func (f *fakeStrategy) Lookup(addr Address) (Object, bool) {
	for _, r := range f.ranges {
		if addr >= r.start && addr < r.end {
			return r.obj, true
		}
	}
	return Object{}, false
}

type fakeRegionReader struct {
	mu      sync.Mutex
	regions []procmaps.MapRegion
	err     error
	calls   int
}

func (f *fakeRegionReader) ReadRegions() ([]procmaps.MapRegion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]procmaps.MapRegion(nil), f.regions...), nil
}

func (f *fakeRegionReader) set(regions []procmaps.MapRegion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regions = regions
}

func (f *fakeRegionReader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeModules struct {
	mu        sync.Mutex
	modules   map[Handle]Address // handle -> end
	names     map[Handle]string
	nameCalls map[Handle]int
}

func (f *fakeModules) ModuleFromAddress(addr Address) (Handle, error) {
	for h, end := range f.modules {
		if addr >= Address(h) && addr < end {
			return h, nil
		}
	}
	return 0, fmt.Errorf("module for %s: %w", addr, ErrNotOwned)
}

func (f *fakeModules) ModuleFileName(h Handle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nameCalls == nil {
		f.nameCalls = map[Handle]int{}
	}
	f.nameCalls[h]++
	if name, ok := f.names[h]; ok {
		return name, nil
	}
	return "", errors.New("the specified module could not be found")
}

func (f *fakeModules) calls(h Handle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nameCalls[h]
}

var libRegions = []procmaps.MapRegion{
	{Start: 0x55d4b2000000, End: 0x55d4b2001000, Offset: 0, Perms: "r--p", Dev: "08:01", Inode: 1, Path: "/usr/bin/app"},
	{Start: 0x55d4b2001000, End: 0x55d4b2004000, Offset: 0x1000, Perms: "r-xp", Dev: "08:01", Inode: 1, Path: "/usr/bin/app"},
	{Start: 0x55d4b3000000, End: 0x55d4b3021000, Perms: "rw-p", Path: "[heap]"},
	{Start: 0x7f0000000000, End: 0x7f0000001000, Offset: 0, Perms: "r--p", Dev: "08:01", Inode: 2, Path: "/usr/lib/libfoo.so"},
	{Start: 0x7f0000001000, End: 0x7f0000003000, Offset: 0x1000, Perms: "r-xp", Dev: "08:01", Inode: 2, Path: "/usr/lib/libfoo.so"},
	{Start: 0x7f0000003000, End: 0x7f0000004000, Perms: "rw-p"},
}

var libImages = map[string]uint64{
	"/usr/bin/app":       0x0,
	"/usr/lib/libfoo.so": 0x1000,
}
