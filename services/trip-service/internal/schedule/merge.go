package schedule

import (
	"sort"
	"time"
)

// Range is an inclusive span of calendar days at midnight UTC.
type Range struct {
	Start time.Time
	End   time.Time
}

// Merge collapses one participant's ranges into a minimal sorted disjoint
// set. Ranges that overlap or touch (Jan 1-2 followed by Jan 3-4) merge into
// one; a full free day between two ranges keeps them separate. The input is
// not modified; empty input yields nil.
func Merge(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	out := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if ordinal(r.Start) <= ordinal(last.End)+1 {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}
