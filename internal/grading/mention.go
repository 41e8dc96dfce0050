package grading

// Mention is the qualitative band of an average.
type Mention string

const (
	MentionVeryGood     Mention = "Very Good"
	MentionGood         Mention = "Good"
	MentionFairlyGood   Mention = "Fairly Good"
	MentionPassable     Mention = "Passable"
	MentionInsufficient Mention = "Insufficient"
	MentionNone         Mention = "No grades"
)

var bands = []struct {
	min     float64
	mention Mention
}{
	{16, MentionVeryGood},
	{14, MentionGood},
	{12, MentionFairlyGood},
	{10, MentionPassable},
}

var appreciations = map[Mention]string{
	MentionVeryGood:     "Very Good - Congratulations",
	MentionGood:         "Good - Keep it up",
	MentionFairlyGood:   "Fairly Good - Can do better",
	MentionPassable:     "Passable - Must make more effort",
	MentionInsufficient: "Insufficient - Much more effort needed",
	MentionNone:         "No grades recorded for this semester.",
}

// MentionFor bands the full-precision average; lower bounds are inclusive.
func MentionFor(avg StudentAverage) Mention {
	if !avg.Defined {
		return MentionNone
	}
	for _, b := range bands {
		if avg.Value >= b.min {
			return b.mention
		}
	}
	return MentionInsufficient
}

// Appreciation is the standard sentence printed for the mention.
func (m Mention) Appreciation() string {
	return appreciations[m]
}
