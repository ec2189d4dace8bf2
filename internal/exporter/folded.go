package exporter

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/VladMinzatu/objlocate/internal/collector"
	"github.com/VladMinzatu/objlocate/internal/locator"
)

// BuildFoldedStacks aggregates samples into the folded format consumed by
// flamegraph tools. Frames are named object+offset, or by raw address when
// unresolved.
func BuildFoldedStacks(samples []collector.Sample) map[string]uint64 {
	agg := make(map[string]uint64)
	for _, s := range samples {
		if len(s.Frames) == 0 {
			continue
		}
		names := make([]string, 0, len(s.Frames))
		for i := len(s.Frames) - 1; i >= 0; i-- { // reverse order because flamegraphs expect root->leaf order
			names = append(names, escapeFoldedName(frameName(s.Frames[i])))
		}
		agg[strings.Join(names, ";")] += s.Count
	}
	return agg
}

func frameName(f locator.ResolvedFrame) string {
	if !f.Resolved() {
		return f.RawAddress.String()
	}
	return fmt.Sprintf("%s+%s", f.ObjectPath, f.ObjectAddress)
}

func escapeFoldedName(name string) string {
	// semicolons separate frames and newlines separate lines. Replace them with safe characters.
	name = strings.ReplaceAll(name, ";", "_")
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.TrimSpace(name)
	if name == "" {
		return "<unknown>"
	}
	return name
}

func WriteFoldedStacksToFile(agg map[string]uint64, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	type kv struct {
		k string
		v uint64
	}
	var items []kv
	for k, v := range agg {
		items = append(items, kv{k, v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].v == items[j].v {
			return items[i].k < items[j].k
		}
		return items[i].v > items[j].v
	})

	for _, it := range items {
		if _, err := fmt.Fprintf(f, "%s %d\n", it.k, it.v); err != nil {
			return err
		}
	}
	return nil
}
