package locator

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VladMinzatu/objlocate/internal/procmaps"
	"golang.org/x/time/rate"
)

// TableStrategy answers lookups from an immutable snapshot of the process's
// loaded objects. Lookups are lock-free binary searches; a miss may trigger a
// rate-limited refresh of the snapshot for objects loaded after it was taken.
//
// A hit is never revalidated. If an object is unloaded and another is mapped
// over its range, lookups keep reporting the old object until Refresh is
// called. Callers that observe load activity, such as a sampling loop, should
// call Refresh (or Locator.Refresh) at their own cadence.
type TableStrategy struct {
	reader  procmaps.RegionReader
	table   atomic.Pointer[procmaps.Table]
	refresh sync.Mutex
	limiter *rate.Limiter
}

type TableOption func(*TableStrategy)

// WithRefreshInterval bounds how often a lookup miss may reread the maps.
// A non-positive interval disables refreshing on miss.
func WithRefreshInterval(d time.Duration) TableOption {
	return func(s *TableStrategy) {
		if d <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

func NewTableStrategy(reader procmaps.RegionReader, opts ...TableOption) (*TableStrategy, error) {
	s := &TableStrategy{
		reader:  reader,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Refresh(); err != nil {
		return nil, fmt.Errorf("build object table: %w", err)
	}
	return s, nil
}

// Refresh replaces the snapshot. Concurrent lookups keep using the previous
// snapshot until the new one is published.
func (s *TableStrategy) Refresh() error {
	s.refresh.Lock()
	defer s.refresh.Unlock()
	return s.reload()
}

func (s *TableStrategy) reload() error {
	regions, err := s.reader.ReadRegions()
	if err != nil {
		return err
	}
	t := procmaps.NewTable(regions)
	s.table.Store(t)
	slog.Debug("Refreshed loaded object table", "objects", t.Len())
	return nil
}

func (s *TableStrategy) Lookup(addr Address) (Object, bool) {
	if obj, ok := s.table.Load().Find(uint64(addr)); ok {
		return tableObject(obj), true
	}
	if s.limiter == nil || !s.limiter.Allow() {
		return Object{}, false
	}
	// Somebody else is already refreshing; don't queue behind them.
	if !s.refresh.TryLock() {
		return Object{}, false
	}
	err := s.reload()
	s.refresh.Unlock()
	if err != nil {
		slog.Warn("Failed to refresh loaded object table", "error", err)
		return Object{}, false
	}
	if obj, ok := s.table.Load().Find(uint64(addr)); ok {
		return tableObject(obj), true
	}
	return Object{}, false
}

func (s *TableStrategy) Objects() []procmaps.Object {
	return s.table.Load().Objects()
}

func tableObject(obj *procmaps.Object) Object {
	return Object{Path: obj.Path, Base: Address(obj.Base)}
}
