package collector

import (
	"runtime"
)

// GoroutineSource samples the stacks of every goroutine in this process.
type GoroutineSource struct{}

func (GoroutineSource) Stacks() ([][]uintptr, error) {
	n, _ := runtime.GoroutineProfile(nil)
	for {
		records := make([]runtime.StackRecord, n+16)
		got, ok := runtime.GoroutineProfile(records)
		if !ok {
			n = got
			continue
		}
		stacks := make([][]uintptr, 0, got)
		for i := range records[:got] {
			stack := records[i].Stack()
			stacks = append(stacks, append([]uintptr(nil), stack...))
		}
		return stacks, nil
	}
}
