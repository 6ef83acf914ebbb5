package core

// CategoryTotal represents an amount aggregated by category name.
type CategoryTotal struct {
	Category string
	Total    Money
}

// Stats is the per-day summary for one user.
type Stats struct {
	HasData    bool
	Day        Date
	Total      Money
	Categories []CategoryTotal // sorted by Total descending
}

// EmptyStats returns the no-data summary for day.
func EmptyStats(day Date) Stats {
	return Stats{Day: day, Categories: []CategoryTotal{}}
}

// NewStats builds a summary from per-category totals.
func NewStats(day Date, totals []CategoryTotal) Stats {
	if len(totals) == 0 {
		return EmptyStats(day)
	}
	var sum Money
	for _, t := range totals {
		sum = sum.Add(t.Total)
	}
	return Stats{HasData: true, Day: day, Total: sum, Categories: totals}
}

// Top returns at most n leading categories.
func (s Stats) Top(n int) []CategoryTotal {
	if n < 0 || n >= len(s.Categories) {
		return s.Categories
	}
	return s.Categories[:n]
}
