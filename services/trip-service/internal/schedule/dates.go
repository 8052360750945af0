package schedule

import "time"

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

const secondsPerDay = 86400

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ordinal maps a calendar day to its day index since the Unix epoch, the
// integer axis all interval arithmetic runs on.
func ordinal(t time.Time) int {
	return int(t.Unix() / secondsPerDay)
}

func fromOrdinal(day int) time.Time {
	return time.Unix(int64(day)*secondsPerDay, 0).UTC()
}
