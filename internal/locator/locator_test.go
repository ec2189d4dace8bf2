package locator

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/VladMinzatu/objlocate/internal/imagebase"
	"github.com/stretchr/testify/require"
)

func newTableLocator(t *testing.T) *Locator {
	t.Helper()
	s, err := NewTableStrategy(&fakeRegionReader{regions: libRegions}, WithRefreshInterval(0))
	require.NoError(t, err)
	return New(s, &fakeImages{bases: libImages})
}

func TestLocate_SharedLibrary(t *testing.T) {
	l := newTableLocator(t)

	got := l.Locate(0x7f0000001234)
	require.Equal(t, ResolvedFrame{
		RawAddress:    0x7f0000001234,
		ObjectAddress: 0x2234,
		ObjectPath:    "/usr/lib/libfoo.so",
	}, got)
	require.True(t, got.Resolved())
}

func TestLocate_PositionIndependentExecutable(t *testing.T) {
	l := newTableLocator(t)

	got := l.Locate(0x55d4b2001500)
	require.Equal(t, Address(0x1500), got.ObjectAddress)
	require.Equal(t, "/usr/bin/app", got.ObjectPath)
}

func TestLocate_UnownedAddresses(t *testing.T) {
	l := newTableLocator(t)

	for _, addr := range []Address{0, 0x1000, 0x55d4b3000010, 0x7f0000003010, 0xffffffffffffffff} {
		t.Run(addr.String(), func(t *testing.T) {
			got := l.Locate(addr)
			require.Equal(t, ResolvedFrame{RawAddress: addr}, got)
			require.False(t, got.Resolved())
		})
	}
}

func TestLocate_ImageBaseFailureKeepsPath(t *testing.T) {
	s, err := NewTableStrategy(&fakeRegionReader{regions: libRegions}, WithRefreshInterval(0))
	require.NoError(t, err)
	l := New(s, &fakeImages{})

	got := l.Locate(0x7f0000001234)
	require.Equal(t, Address(0), got.ObjectAddress)
	require.Equal(t, "/usr/lib/libfoo.so", got.ObjectPath)
}

func TestLocate_MainExecutable(t *testing.T) {
	calls := 0
	exe := func() (string, error) {
		calls++
		return "/opt/app/bin/server", nil
	}
	s := &fakeStrategy{ranges: []fakeRange{
		{start: 0x400000, end: 0x500000, obj: Object{Executable: true, Base: 0x400000}},
	}}
	l := New(s, &fakeImages{bases: map[string]uint64{"/opt/app/bin/server": 0x400000}}, WithExecutable(exe))

	first := l.Locate(0x401234)
	second := l.Locate(0x401234)
	require.Equal(t, "/opt/app/bin/server", first.ObjectPath)
	require.Equal(t, Address(0x401234), first.ObjectAddress)
	require.Equal(t, first, second)
}

func TestLocate_MainExecutablePathUnknown(t *testing.T) {
	s := &fakeStrategy{ranges: []fakeRange{
		{start: 0x400000, end: 0x500000, obj: Object{Executable: true, Base: 0x400000}},
	}}
	images := &fakeImages{}
	l := New(s, images, WithExecutable(func() (string, error) { return "", errors.New("readlink failed") }))

	got := l.Locate(0x401234)
	require.Equal(t, ResolvedFrame{RawAddress: 0x401234}, got)
	require.Equal(t, 0, images.calls)
}

func TestLocate_LinkRelativeObject(t *testing.T) {
	s := &fakeStrategy{ranges: []fakeRange{
		{start: 0x7f0000001000, end: 0x7f0000003000, obj: Object{Path: "/usr/lib/libfoo.so", Base: 0x7eff00000000, LinkRelative: true}},
	}}
	images := &fakeImages{bases: libImages}
	l := New(s, images)

	got := l.Locate(0x7f0000001234)
	require.Equal(t, Address(0x100001234), got.ObjectAddress)
	require.Equal(t, 0, images.calls)
}

func TestLocate_Idempotent(t *testing.T) {
	l := newTableLocator(t)
	for _, r := range libRegions {
		addr := Address(r.Start + 0x10)
		require.Equal(t, l.Locate(addr), l.Locate(addr))
	}
}

func TestLocateAll_PreservesOrderAndLength(t *testing.T) {
	l := newTableLocator(t)

	addrs := []Address{0x7f0000001234, 0x1000, 0x55d4b2001500, 0x7f0000001234}
	got := l.LocateAll(addrs)
	require.Len(t, got, len(addrs))
	for i, addr := range addrs {
		require.Equal(t, l.Locate(addr), got[i])
	}
	require.False(t, got[1].Resolved())
	require.Empty(t, l.LocateAll(nil))
}

func TestResolve_MatchesLocate(t *testing.T) {
	tableLoc := newTableLocator(t)
	linkRelative := New(&fakeStrategy{ranges: []fakeRange{
		{start: 0x7f0000001000, end: 0x7f0000003000, obj: Object{Path: "/usr/lib/libfoo.so", Base: 0x7eff00000000, LinkRelative: true}},
	}}, &fakeImages{bases: libImages})

	for name, l := range map[string]*Locator{"table": tableLoc, "link relative": linkRelative} {
		t.Run(name, func(t *testing.T) {
			for _, addr := range []Address{0x7f0000001000, 0x7f0000001234, 0x7f0000002fff} {
				deferred, ok := l.Capture(addr)
				require.True(t, ok)
				resolved, err := l.Resolve(deferred)
				require.NoError(t, err)
				require.Equal(t, l.Locate(addr), resolved)
			}
		})
	}
}

func TestCapture_DoesNotNeedImageBase(t *testing.T) {
	s, err := NewTableStrategy(&fakeRegionReader{regions: libRegions}, WithRefreshInterval(0))
	require.NoError(t, err)
	images := &fakeImages{bases: libImages}
	l := New(s, images)

	got, ok := l.Capture(0x7f0000001234)
	require.True(t, ok)
	require.Equal(t, DeferredFrame{RawAddress: 0x7f0000001234, ObjectOffset: 0x1234, ObjectPath: "/usr/lib/libfoo.so"}, got)
	require.Equal(t, 0, images.calls)

	got, ok = l.Capture(0x55d4b3000010)
	require.False(t, ok)
	require.False(t, got.Captured())
	require.Equal(t, Address(0x55d4b3000010), got.RawAddress)
}

func TestResolve_NonexistentObjectFails(t *testing.T) {
	l := New(&fakeStrategy{}, imagebase.NewFileProvider())

	got, err := l.Resolve(DeferredFrame{RawAddress: 0x7f0000000500, ObjectOffset: 0x500, ObjectPath: "<nonexistent>"})
	require.Error(t, err)
	require.Equal(t, ResolvedFrame{}, got)

	var lookupErr *ImageBaseLookupError
	require.True(t, errors.As(err, &lookupErr))
	require.Equal(t, "<nonexistent>", lookupErr.Path)
	require.True(t, errors.Is(err, imagebase.ErrNotFound))
}

func TestResolveAll(t *testing.T) {
	l := newTableLocator(t)
	frames := l.CaptureAll([]Address{0x7f0000001234, 0x1000})
	frames = append(frames, DeferredFrame{RawAddress: 0x42, ObjectOffset: 0x42, ObjectPath: "/gone.so"})

	got, err := l.ResolveAll(frames)
	require.Len(t, got, 3)
	require.Equal(t, l.Locate(0x7f0000001234), got[0])
	require.Equal(t, ResolvedFrame{RawAddress: 0x1000}, got[1])
	require.Equal(t, ResolvedFrame{RawAddress: 0x42, ObjectPath: "/gone.so"}, got[2])

	var lookupErr *ImageBaseLookupError
	require.True(t, errors.As(err, &lookupErr))
	require.Equal(t, "/gone.so", lookupErr.Path)

	_, err = l.ResolveAll(frames[:2])
	require.NoError(t, err)
}

func TestLocate_Concurrent(t *testing.T) {
	l := newTableLocator(t)
	addrs := []Address{0x7f0000001234, 0x55d4b2001500, 0x1000, 0x7f0000002000, 0x55d4b3000010}
	want := l.LocateAll(addrs)

	const workers = 16
	results := make([][]ResolvedFrame, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				results[w] = l.LocateAll(addrs)
			}
		}(w)
	}
	wg.Wait()
	for w := range results {
		require.Equal(t, want, results[w], fmt.Sprintf("worker %d", w))
	}
}

func TestResolvedFrame_String(t *testing.T) {
	require.Equal(t, "0x1000", ResolvedFrame{RawAddress: 0x1000}.String())
	require.Equal(t, "0x7f0000001234 (/usr/lib/libfoo.so+0x2234)",
		ResolvedFrame{RawAddress: 0x7f0000001234, ObjectAddress: 0x2234, ObjectPath: "/usr/lib/libfoo.so"}.String())
}
