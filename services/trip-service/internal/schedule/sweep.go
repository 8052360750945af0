package schedule

import (
	"sort"
	"time"
)

// Interval is a span of days annotated with how many participants are free
// on every day of the span.
type Interval struct {
	Start time.Time
	End   time.Time
	Count int
}

type event struct {
	day   int
	delta int
}

// Aggregate combines merged per-participant ranges into contiguous intervals
// counting how many participants are free. Days where nobody is free are
// omitted rather than reported with a zero count. Counts are clamped to
// totalMembers so reassigned identities or unmerged duplicates can never
// report more free participants than the group has.
func Aggregate(perParticipant [][]Range, totalMembers int) []Interval {
	var events []event
	for _, ranges := range perParticipant {
		for _, r := range ranges {
			events = append(events, event{day: ordinal(r.Start), delta: 1})
			events = append(events, event{day: ordinal(r.End) + 1, delta: -1})
		}
	}
	if len(events) == 0 {
		return nil
	}

	sort.Slice(events, func(i, j int) bool { return events[i].day < events[j].day })

	var out []Interval
	active := 0
	prev := events[0].day
	for i := 0; i < len(events); {
		day := events[i].day
		if day > prev && active > 0 {
			count := active
			if count > totalMembers {
				count = totalMembers
			}
			if count > 0 {
				out = append(out, Interval{
					Start: fromOrdinal(prev),
					End:   fromOrdinal(day - 1),
					Count: count,
				})
			}
		}
		// All deltas on the same day accumulate before a boundary is drawn.
		for i < len(events) && events[i].day == day {
			active += events[i].delta
			i++
		}
		prev = day
	}

	return collapseAdjacent(out)
}

// collapseAdjacent joins consecutive intervals that touch and carry the same
// count, so clamping cannot leave semantically identical coverage fragmented.
func collapseAdjacent(intervals []Interval) []Interval {
	if len(intervals) < 2 {
		return intervals
	}
	out := intervals[:1]
	for _, iv := range intervals[1:] {
		last := &out[len(out)-1]
		if iv.Count == last.Count && ordinal(iv.Start) == ordinal(last.End)+1 {
			last.End = iv.End
			continue
		}
		out = append(out, iv)
	}
	return out
}
