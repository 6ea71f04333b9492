package scraper

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/aniload/aniload/internal/api"
	"github.com/aniload/aniload/internal/models"
	"github.com/aniload/aniload/internal/util"
)

// ResolveMediaURL turns an episode locator into the direct media URL.
// Two requests are needed: the embed endpoint answers with the player
// page URL, and the player page carries the downloadUrl literal.
func ResolveMediaURL(seriesURL string, ref models.EpisodeRef) (string, error) {
	embedURL, err := EmbedURL(seriesURL, ref.ID)
	if err != nil {
		return "", err
	}

	body, err := api.GetWithRetry(embedURL)
	if err != nil {
		return "", err
	}
	playerURL := strings.TrimSpace(string(body))
	if !strings.HasPrefix(playerURL, "http") {
		return "", errors.Wrapf(ErrParse, "embed endpoint for episode %d returned no player URL", ref.Num)
	}

	resp, err := api.Get(playerURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", errors.Wrapf(ErrParse, "failed to parse player page for episode %d: %v", ref.Num, err)
	}

	return ExtractDownloadURL(doc)
}

// crawlerWorkers bounds the concurrent info API lookups.
const crawlerWorkers = 8

// FetchEpisodesFromInfoAPI rebuilds the episode list through the info
// API when the series page carries no video-player element. Lookups run
// concurrently, one per episode index.
func FetchEpisodesFromInfoAPI(seriesURL string) ([]models.EpisodeRef, error) {
	count, err := api.EpisodeCount(seriesURL)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errors.Wrap(ErrParse, "info API reports no episodes")
	}

	episodes := make([]models.EpisodeRef, count)
	errs := make([]error, count)

	pool := util.NewWorkerPool(crawlerWorkers)
	for i := 0; i < count; i++ {
		index := i
		pool.Submit(func() {
			id, label, err := api.EpisodeIDAt(seriesURL, index)
			if err != nil {
				errs[index] = err
				return
			}
			num, err := ParseEpisodeNumber(label)
			if err != nil {
				num = index + 1
			}
			if label == "" {
				label = strconv.Itoa(num)
			}
			episodes[index] = models.EpisodeRef{Num: num, Label: label, ID: id}
		})
	}
	pool.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return episodes, nil
}
