package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMentionForBoundaries(t *testing.T) {
	cases := []struct {
		value float64
		want  Mention
	}{
		{20, MentionVeryGood},
		{16, MentionVeryGood},
		{15.99, MentionGood},
		{14, MentionGood},
		{13.999, MentionFairlyGood},
		{12, MentionFairlyGood},
		{10, MentionPassable},
		{9.99, MentionInsufficient},
		{0, MentionInsufficient},
	}
	for _, tc := range cases {
		got := MentionFor(StudentAverage{Value: tc.value, Defined: true})
		assert.Equal(t, tc.want, got, "average %.3f", tc.value)
	}
}

func TestMentionUsesFullPrecision(t *testing.T) {
	// 15.996 rounds to 16.00 for display but is still below the band.
	avg := StudentAverage{Value: 15.996, Defined: true}
	assert.Equal(t, 16.0, avg.Rounded())
	assert.Equal(t, MentionGood, MentionFor(avg))
}

func TestMentionAppreciation(t *testing.T) {
	assert.Equal(t, "Fairly Good - Can do better", MentionFairlyGood.Appreciation())
	assert.Equal(t, "Insufficient - Much more effort needed", MentionInsufficient.Appreciation())
	assert.NotEmpty(t, MentionNone.Appreciation())
}
