package level

// Level is a named career tier derived from cumulative score.
type Level struct {
	Title string
	Tier  int
}

// band is a half-open score range [Min, next.Min).
type band struct {
	min   float64
	title string
}

// bands partition [0, inf) with no gaps. Order matters.
var bands = []band{
	{0, "Intern"},
	{1000, "Junior"},
	{3000, "Mid-Level"},
	{6000, "Senior"},
	{10000, "Lead"},
	{20000, "Principal"},
	{50000, "Executive"},
}

// ForScore maps a cumulative score to its career level.
// Total over all scores; negative scores map to the lowest tier.
func ForScore(score float64) Level {
	result := Level{Title: bands[0].title, Tier: 0}
	for i, b := range bands {
		if score >= b.min {
			result = Level{Title: b.title, Tier: i}
		}
	}
	return result
}
