package locator

import (
	"errors"
	"log/slog"
	"os"
	"sync"
)

// ImageBaseProvider returns the link-time base address of the object at path.
type ImageBaseProvider interface {
	ImageBase(path string) (uint64, error)
}

var selfExecutable = sync.OnceValues(os.Executable)

type Locator struct {
	strategy   Strategy
	images     ImageBaseProvider
	executable func() (string, error)
}

type Option func(*Locator)

// WithExecutable overrides how the main program's path is discovered.
func WithExecutable(fn func() (string, error)) Option {
	return func(l *Locator) {
		l.executable = fn
	}
}

func New(strategy Strategy, images ImageBaseProvider, opts ...Option) *Locator {
	l := &Locator{
		strategy:   strategy,
		images:     images,
		executable: selfExecutable,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type refresher interface {
	Refresh() error
}

// Refresh rereads the loaded objects if the strategy keeps a snapshot of
// them. Strategies that query the loader on every lookup need nothing.
func (l *Locator) Refresh() error {
	if r, ok := l.strategy.(refresher); ok {
		return r.Refresh()
	}
	return nil
}

// Locate resolves a single address. It never fails: addresses without an
// owning object, or whose object's image base is unknown, come back with a
// zero ObjectAddress.
func (l *Locator) Locate(addr Address) ResolvedFrame {
	frame := ResolvedFrame{RawAddress: addr}
	obj, ok := l.strategy.Lookup(addr)
	if !ok {
		return frame
	}
	frame.ObjectPath = l.objectPath(obj)
	if obj.LinkRelative {
		frame.ObjectAddress = addr - obj.Base
		return frame
	}
	if frame.ObjectPath == "" {
		return frame
	}
	base, err := l.images.ImageBase(frame.ObjectPath)
	if err != nil {
		slog.Debug("Image base unavailable, leaving frame unresolved", "addr", addr, "path", frame.ObjectPath, "error", err)
		return frame
	}
	frame.ObjectAddress = addr - obj.Base + Address(base)
	return frame
}

// LocateAll resolves addrs independently; result[i] belongs to addrs[i].
func (l *Locator) LocateAll(addrs []Address) []ResolvedFrame {
	frames := make([]ResolvedFrame, len(addrs))
	for i, addr := range addrs {
		frames[i] = l.Locate(addr)
	}
	return frames
}

// Capture records the owning object of addr and the offset from its runtime
// base without consulting the image base provider, so it is cheap enough to
// run while a trace is being taken. The second result is false when no object
// could be attributed.
func (l *Locator) Capture(addr Address) (DeferredFrame, bool) {
	frame := DeferredFrame{RawAddress: addr}
	obj, ok := l.strategy.Lookup(addr)
	if !ok {
		return frame, false
	}
	path := l.objectPath(obj)
	if path == "" {
		return frame, false
	}
	offset := addr - obj.Base
	if obj.LinkRelative {
		// Resolve adds the image base back, so it has to come off here.
		base, err := l.images.ImageBase(path)
		if err != nil {
			slog.Debug("Image base unavailable for link-relative object", "addr", addr, "path", path, "error", err)
			return frame, false
		}
		offset -= Address(base)
	}
	frame.ObjectOffset = offset
	frame.ObjectPath = path
	return frame, true
}

func (l *Locator) CaptureAll(addrs []Address) []DeferredFrame {
	frames := make([]DeferredFrame, len(addrs))
	for i, addr := range addrs {
		frames[i], _ = l.Capture(addr)
	}
	return frames
}

// Resolve completes a deferred frame. Unlike Locate it reports a failed image
// base lookup as an *ImageBaseLookupError instead of a zero address.
func (l *Locator) Resolve(frame DeferredFrame) (ResolvedFrame, error) {
	base, err := l.images.ImageBase(frame.ObjectPath)
	if err != nil {
		return ResolvedFrame{}, &ImageBaseLookupError{Path: frame.ObjectPath, Err: err}
	}
	return ResolvedFrame{
		RawAddress:    frame.RawAddress,
		ObjectAddress: frame.ObjectOffset + Address(base),
		ObjectPath:    frame.ObjectPath,
	}, nil
}

// ResolveAll resolves every captured frame. Frames that were never attributed
// to an object, or whose resolution fails, keep their raw address and path;
// all failures are returned joined.
func (l *Locator) ResolveAll(frames []DeferredFrame) ([]ResolvedFrame, error) {
	resolved := make([]ResolvedFrame, len(frames))
	var errs []error
	for i, f := range frames {
		if !f.Captured() {
			resolved[i] = ResolvedFrame{RawAddress: f.RawAddress}
			continue
		}
		r, err := l.Resolve(f)
		if err != nil {
			errs = append(errs, err)
			r = ResolvedFrame{RawAddress: f.RawAddress, ObjectPath: f.ObjectPath}
		}
		resolved[i] = r
	}
	return resolved, errors.Join(errs...)
}

func (l *Locator) objectPath(obj Object) string {
	if obj.Path != "" || !obj.Executable {
		return obj.Path
	}
	exe, err := l.executable()
	if err != nil {
		slog.Warn("Failed to determine executable path", "error", err)
		return ""
	}
	return exe
}
