package downloader

import (
	"github.com/pkg/errors"

	"github.com/aniload/aniload/internal/models"
)

// ErrInvalidRange marks a nonsensical start/end pair. It is fatal for a
// single-series invocation.
var ErrInvalidRange = errors.New("invalid episode range")

// SelectRange returns the contiguous subset of episodes whose numbers
// fall in [start, end]. A nil bound is open on that side; both nil
// returns the input unchanged. Episodes are matched by numeric value,
// not slice position, so gaps and specials are handled. Original order
// is preserved.
func SelectRange(episodes []models.EpisodeRef, start, end *int) ([]models.EpisodeRef, error) {
	if start == nil && end == nil {
		return episodes, nil
	}
	if start != nil && end != nil && *start > *end {
		return nil, errors.Wrapf(ErrInvalidRange, "start episode %d greater than end episode %d", *start, *end)
	}

	var selected []models.EpisodeRef
	for _, ep := range episodes {
		if start != nil && ep.Num < *start {
			continue
		}
		if end != nil && ep.Num > *end {
			continue
		}
		selected = append(selected, ep)
	}

	if len(selected) == 0 {
		return nil, errors.Wrap(ErrInvalidRange, "no episodes fall in the requested range")
	}
	return selected, nil
}
