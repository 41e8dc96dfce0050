// Package grading turns raw evaluation results into /20 averages, mentions and class ranks.
package grading

import (
	"math"
	"time"
)

// Scale is the common grading basis every score is rescaled to.
const Scale = 20.0

// Entry is one evaluation result joined with its subject.
type Entry struct {
	SubjectName string
	SubjectCode string
	Coefficient float64
	Score       float64
	MaxScore    float64
	Kind        string
	EvaluatedOn time.Time
}

// EntryLine is an Entry with its score on the /20 basis.
type EntryLine struct {
	Entry
	Normalized float64
}

// StudentAverage is a coefficient-weighted /20 average. Defined is false when
// nothing carried weight; Value is then meaningless and must not be shown as 0.
type StudentAverage struct {
	Value       float64
	Defined     bool
	EntryCount  int
	Numerator   float64
	Denominator float64
}

// Rounded returns the two-decimal display value.
func (a StudentAverage) Rounded() float64 {
	return math.Round(a.Value*100) / 100
}

// Pointer returns the rounded average, or nil when undefined.
func (a StudentAverage) Pointer() *float64 {
	if !a.Defined {
		return nil
	}
	v := a.Rounded()
	return &v
}

// Normalize rescales score out of max to the /20 basis. A non-positive max yields 0.
func Normalize(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return score * Scale / max
}

// ComputeAverage returns Σ(normalized × coefficient) / Σ(coefficient).
// Entries without a positive coefficient are counted but carry no weight.
func ComputeAverage(entries []Entry) StudentAverage {
	avg := StudentAverage{EntryCount: len(entries)}
	for _, e := range entries {
		if e.Coefficient <= 0 {
			continue
		}
		avg.Numerator += Normalize(e.Score, e.MaxScore) * e.Coefficient
		avg.Denominator += e.Coefficient
	}
	if avg.Denominator > 0 {
		avg.Value = avg.Numerator / avg.Denominator
		avg.Defined = true
	}
	return avg
}

// Breakdown lists the entries with their normalized scores, preserving order.
func Breakdown(entries []Entry) []EntryLine {
	lines := make([]EntryLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, EntryLine{Entry: e, Normalized: Normalize(e.Score, e.MaxScore)})
	}
	return lines
}
