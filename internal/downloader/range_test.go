package downloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniload/aniload/internal/models"
)

func intPtr(v int) *int { return &v }

func makeEpisodes(nums ...int) []models.EpisodeRef {
	eps := make([]models.EpisodeRef, 0, len(nums))
	for _, n := range nums {
		eps = append(eps, models.EpisodeRef{Num: n})
	}
	return eps
}

func episodeNums(eps []models.EpisodeRef) []int {
	nums := make([]int, 0, len(eps))
	for _, ep := range eps {
		nums = append(nums, ep.Num)
	}
	return nums
}

func TestSelectRange_NoBoundsIsIdentity(t *testing.T) {
	t.Parallel()

	eps := makeEpisodes(1, 2, 3, 4, 5)
	selected, err := SelectRange(eps, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, eps, selected)
}

func TestSelectRange_Bounds(t *testing.T) {
	t.Parallel()

	eps := makeEpisodes(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)

	tests := []struct {
		name     string
		start    *int
		end      *int
		expected []int
	}{
		{"both bounds inclusive", intPtr(5), intPtr(10), []int{5, 6, 7, 8, 9, 10}},
		{"start only", intPtr(10), nil, []int{10, 11, 12}},
		{"end only", nil, intPtr(3), []int{1, 2, 3}},
		{"single episode", intPtr(7), intPtr(7), []int{7}},
		{"full cover", intPtr(1), intPtr(12), []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected, err := SelectRange(eps, tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, episodeNums(selected))
		})
	}
}

func TestSelectRange_MatchesByNumberNotPosition(t *testing.T) {
	t.Parallel()

	// Gaps and a special numbered 0 must be matched by value.
	eps := makeEpisodes(0, 1, 2, 5, 6, 9)

	selected, err := SelectRange(eps, intPtr(2), intPtr(6))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 6}, episodeNums(selected))
}

func TestSelectRange_PreservesOrder(t *testing.T) {
	t.Parallel()

	eps := makeEpisodes(3, 1, 2)
	selected, err := SelectRange(eps, intPtr(1), intPtr(3))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, episodeNums(selected))
}

func TestSelectRange_StartAfterEnd(t *testing.T) {
	t.Parallel()

	eps := makeEpisodes(1, 2, 3)
	_, err := SelectRange(eps, intPtr(3), intPtr(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestSelectRange_EmptyResult(t *testing.T) {
	t.Parallel()

	eps := makeEpisodes(1, 2, 3)

	_, err := SelectRange(eps, intPtr(10), intPtr(20))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = SelectRange(eps, intPtr(4), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRange)
}
