package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defined(v float64) StudentAverage { return StudentAverage{Value: v, Defined: true} }

func TestRankPlacesUndefinedLast(t *testing.T) {
	ranked := Rank([]RankInput{
		{StudentID: "s3", Average: StudentAverage{}},
		{StudentID: "s2", Average: defined(12)},
		{StudentID: "s1", Average: defined(18)},
	})

	require.Len(t, ranked, 3)
	assert.Equal(t, "s1", ranked[0].StudentID)
	assert.Equal(t, 1, *ranked[0].Rank)
	assert.Equal(t, "s2", ranked[1].StudentID)
	assert.Equal(t, 2, *ranked[1].Rank)
	assert.Equal(t, "s3", ranked[2].StudentID)
	assert.Nil(t, ranked[2].Rank)
	for _, r := range ranked {
		assert.Equal(t, 3, r.ClassSize)
	}
}

func TestRankTiesUseInputOrder(t *testing.T) {
	ranked := Rank([]RankInput{
		{StudentID: "a", Average: defined(14)},
		{StudentID: "b", Average: defined(15)},
		{StudentID: "c", Average: defined(14)},
	})

	assert.Equal(t, []string{"b", "a", "c"}, []string{ranked[0].StudentID, ranked[1].StudentID, ranked[2].StudentID})
	assert.Equal(t, 2, *ranked[1].Rank)
	assert.Equal(t, 3, *ranked[2].Rank)
}

func TestRankIsBijectionOverDefined(t *testing.T) {
	inputs := []RankInput{
		{StudentID: "a", Average: defined(9.5)},
		{StudentID: "b"},
		{StudentID: "c", Average: defined(11)},
		{StudentID: "d", Average: defined(17.25)},
		{StudentID: "e"},
		{StudentID: "f", Average: defined(11)},
	}

	ranked := Rank(inputs)

	seen := map[int]bool{}
	unranked := []string{}
	for _, r := range ranked {
		if r.Rank == nil {
			unranked = append(unranked, r.StudentID)
			continue
		}
		seen[*r.Rank] = true
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true, 4: true}, seen)
	assert.Equal(t, []string{"b", "e"}, unranked)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil))
}
