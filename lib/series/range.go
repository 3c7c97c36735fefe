package series

import (
	"fmt"
	"time"
)

// Range is an inclusive range of calendar dates.
type Range struct {
	Start time.Time
	End   time.Time
}

// LastDays is the window ending today and starting n days before.
func LastDays(now time.Time, n int) Range {
	end := Date(now)
	return Range{
		Start: end.AddDate(0, 0, -n),
		End:   end,
	}
}

// ParseRange parses two YYYY-MM-DD dates, either of which may be empty,
// falling back to the trailing window of `days` days ending at now.
func ParseRange(now time.Time, start, end string, days int) (Range, error) {
	r := LastDays(now, days)
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return Range{}, fmt.Errorf("parse end date: %w", err)
		}
		r.End = t
		if start == "" {
			r.Start = t.AddDate(0, 0, -days)
		}
	}
	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return Range{}, fmt.Errorf("parse start date: %w", err)
		}
		r.Start = t
	}
	if r.End.Before(r.Start) {
		return Range{}, fmt.Errorf("end date %s is before start date %s", r.EndString(), r.StartString())
	}
	return r, nil
}

func (r Range) Contains(t time.Time) bool {
	d := Date(t)
	return !d.Before(Date(r.Start)) && !d.After(Date(r.End))
}

func (r Range) StartString() string {
	return r.Start.Format("2006-01-02")
}

func (r Range) EndString() string {
	return r.End.Format("2006-01-02")
}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.StartString(), r.EndString())
}
