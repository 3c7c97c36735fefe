package series

import (
	"github.com/shopspring/decimal"
)

type Stats struct {
	Count  int
	Min    decimal.Decimal
	Max    decimal.Decimal
	Mean   decimal.Decimal
	First  decimal.Decimal
	Last   decimal.Decimal
	Change decimal.Decimal
}

// Stats assumes the series is sorted.
func (s Series) Stats() Stats {
	if len(s.Observations) == 0 {
		return Stats{}
	}

	first := s.Observations[0].Value
	last := s.Observations[len(s.Observations)-1].Value
	stats := Stats{
		Count: len(s.Observations),
		Min:   first,
		Max:   first,
		First: first,
		Last:  last,
	}

	sum := decimal.Zero
	for _, o := range s.Observations {
		if o.Value.LessThan(stats.Min) {
			stats.Min = o.Value
		}
		if o.Value.GreaterThan(stats.Max) {
			stats.Max = o.Value
		}
		sum = sum.Add(o.Value)
	}
	stats.Mean = sum.DivRound(decimal.NewFromInt(int64(len(s.Observations))), 4)
	stats.Change = last.Sub(first)

	return stats
}
