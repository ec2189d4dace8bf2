package collector

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/VladMinzatu/objlocate/internal/locator"
	"github.com/cespare/xxhash/v2"
)

type StackSource interface {
	Stacks() ([][]uintptr, error)
}

type FrameLocator interface {
	Capture(addr locator.Address) (locator.DeferredFrame, bool)
	Resolve(frame locator.DeferredFrame) (locator.ResolvedFrame, error)
}

// Refresher is implemented by locators that cache the loaded objects. The
// collector refreshes them once per round, before capturing.
type Refresher interface {
	Refresh() error
}

type Sample struct {
	Timestamp time.Time
	Frames    []locator.ResolvedFrame
	Count     uint64
}

type pendingStack struct {
	firstSeen time.Time
	frames    []locator.DeferredFrame
	count     uint64
}

// Collector periodically samples stacks and attributes each frame to its
// object right away, leaving the image base correlation to Flush.
type Collector struct {
	interval time.Duration
	source   StackSource
	frames   FrameLocator

	mu      sync.Mutex
	started bool
	pending map[uint64]*pendingStack
	order   []uint64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewCollector(interval time.Duration, source StackSource, frames FrameLocator) (*Collector, error) {
	if interval <= 1*time.Millisecond {
		return nil, errors.New("invalid interval; must be > 1ms")
	}
	return &Collector{
		interval: interval,
		source:   source,
		frames:   frames,
		pending:  make(map[uint64]*pendingStack),
	}, nil
}

func (c *Collector) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("collector already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.started = true

	c.wg.Add(1)
	go c.run(ctx)
	return nil
}

func (c *Collector) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return errors.New("collector not started")
	}
	c.cancel()
	c.started = false
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

func (c *Collector) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			if err := c.CollectOnce(t); err != nil {
				slog.Warn("Failed to collect stacks", "error", err)
			}
		}
	}
}

// CollectOnce takes one round of stacks from the source.
func (c *Collector) CollectOnce(t time.Time) error {
	stacks, err := c.source.Stacks()
	if err != nil {
		return err
	}
	if r, ok := c.frames.(Refresher); ok {
		if err := r.Refresh(); err != nil {
			slog.Warn("Failed to refresh loaded objects, using previous snapshot", "error", err)
		}
	}
	for _, stack := range stacks {
		if len(stack) == 0 {
			continue
		}
		key := stackKey(stack)

		c.mu.Lock()
		if p, ok := c.pending[key]; ok {
			p.count++
			c.mu.Unlock()
			continue
		}
		c.mu.Unlock()

		frames := make([]locator.DeferredFrame, len(stack))
		for i, pc := range stack {
			frames[i], _ = c.frames.Capture(locator.Address(pc))
		}

		c.mu.Lock()
		if p, ok := c.pending[key]; ok {
			p.count++
		} else {
			c.pending[key] = &pendingStack{firstSeen: t, frames: frames, count: 1}
			c.order = append(c.order, key)
		}
		c.mu.Unlock()
	}
	return nil
}

// Flush resolves every stack collected since the previous Flush. A frame whose
// object base cannot be determined is reported unresolved rather than
// dropping the sample.
func (c *Collector) Flush() []Sample {
	c.mu.Lock()
	pending, order := c.pending, c.order
	c.pending = make(map[uint64]*pendingStack)
	c.order = nil
	c.mu.Unlock()

	resolved := make(map[locator.DeferredFrame]locator.ResolvedFrame)
	samples := make([]Sample, 0, len(order))
	for _, key := range order {
		p := pending[key]
		frames := make([]locator.ResolvedFrame, len(p.frames))
		for i, f := range p.frames {
			if r, ok := resolved[f]; ok {
				frames[i] = r
				continue
			}
			frames[i] = c.resolve(f)
			resolved[f] = frames[i]
		}
		samples = append(samples, Sample{Timestamp: p.firstSeen, Frames: frames, Count: p.count})
	}
	return samples
}

func (c *Collector) resolve(f locator.DeferredFrame) locator.ResolvedFrame {
	if !f.Captured() {
		return locator.ResolvedFrame{RawAddress: f.RawAddress}
	}
	r, err := c.frames.Resolve(f)
	if err != nil {
		slog.Warn("Failed to resolve frame", "addr", f.RawAddress, "path", f.ObjectPath, "error", err)
		return locator.ResolvedFrame{RawAddress: f.RawAddress, ObjectPath: f.ObjectPath}
	}
	return r
}

func stackKey(stack []uintptr) uint64 {
	buf := make([]byte, 0, 8*len(stack))
	for _, pc := range stack {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(pc))
	}
	return xxhash.Sum64(buf)
}
