package exporter

import (
	"io"
	"os"
	"sort"

	"github.com/VladMinzatu/objlocate/internal/collector"
	"github.com/VladMinzatu/objlocate/internal/locator"
	"github.com/google/pprof/profile"
)

// BuildPprofProfile encodes samples with one Mapping per object file.
// Resolved frames carry their object-relative address so that the profile can
// be symbolized offline against each object's debug information; unresolved
// frames keep the raw address and have no mapping.
func BuildPprofProfile(samples []collector.Sample, sampleTypeName, sampleTypeUnit string) (*profile.Profile, error) {
	if len(samples) == 0 {
		p := &profile.Profile{}
		return p, nil
	}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: sampleTypeName, Unit: sampleTypeUnit}},
	}

	mappings := map[string]*profile.Mapping{}
	locMap := map[locator.ResolvedFrame]*profile.Location{}
	nextMappingID := uint64(1)
	nextLocID := uint64(1)

	addMapping := func(path string) *profile.Mapping {
		if m, ok := mappings[path]; ok {
			return m
		}
		m := &profile.Mapping{
			ID:   nextMappingID,
			File: path,
		}
		nextMappingID++
		mappings[path] = m
		p.Mapping = append(p.Mapping, m)
		return m
	}

	addLocationFor := func(frame locator.ResolvedFrame) *profile.Location {
		if loc, ok := locMap[frame]; ok {
			return loc
		}
		loc := &profile.Location{
			ID:      nextLocID,
			Address: uint64(frame.RawAddress),
		}
		if frame.Resolved() {
			loc.Address = uint64(frame.ObjectAddress)
			loc.Mapping = addMapping(frame.ObjectPath)
		}
		nextLocID++
		locMap[frame] = loc
		p.Location = append(p.Location, loc)
		return loc
	}

	for _, s := range samples {
		if len(s.Frames) == 0 {
			continue
		}
		// pprof assumes stacks are in leaf-to-root order, i.e. Frames[0] is the leaf
		locs := make([]*profile.Location, 0, len(s.Frames))
		for _, f := range s.Frames {
			locs = append(locs, addLocationFor(f))
		}
		p.Sample = append(p.Sample, &profile.Sample{
			Value:    []int64{int64(s.Count)},
			Location: locs,
		})
	}

	// p.TimeNanos / Duration: use first and last sample timestamps
	sorted := append([]collector.Sample(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })
	start := sorted[0].Timestamp
	end := sorted[len(sorted)-1].Timestamp
	p.TimeNanos = start.UnixNano()
	p.DurationNanos = end.Sub(start).Nanoseconds()

	if err := p.CheckValid(); err != nil {
		return nil, err
	}
	return p, nil
}

// WriteProfile writes the gzip-compressed profile to filename.
func WriteProfile(p *profile.Profile, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.Write(f)
}

func WriteProfileUncompressed(p *profile.Profile, w io.Writer) error {
	return p.WriteUncompressed(w)
}
