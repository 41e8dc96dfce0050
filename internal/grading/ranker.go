package grading

import "sort"

// RankInput is one student's average, supplied in class order.
type RankInput struct {
	StudentID string
	Average   StudentAverage
}

// Ranked is a RankInput with its position. Rank is nil for undefined averages.
type Ranked struct {
	StudentID string
	Average   StudentAverage
	Rank      *int
	ClassSize int
}

// Rank orders defined averages descending and numbers them 1..N by position, so
// equal averages get distinct ranks in input order. Undefined averages follow
// unranked, in input order. ClassSize counts every input.
func Rank(inputs []RankInput) []Ranked {
	defined := make([]RankInput, 0, len(inputs))
	var undefined []RankInput
	for _, in := range inputs {
		if in.Average.Defined {
			defined = append(defined, in)
		} else {
			undefined = append(undefined, in)
		}
	}
	sort.SliceStable(defined, func(i, j int) bool {
		return defined[i].Average.Value > defined[j].Average.Value
	})

	size := len(inputs)
	out := make([]Ranked, 0, size)
	for i, in := range defined {
		rank := i + 1
		out = append(out, Ranked{StudentID: in.StudentID, Average: in.Average, Rank: &rank, ClassSize: size})
	}
	for _, in := range undefined {
		out = append(out, Ranked{StudentID: in.StudentID, Average: in.Average, ClassSize: size})
	}
	return out
}
