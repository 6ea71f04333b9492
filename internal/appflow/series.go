// Package appflow wires the fetch → extract → select → download pipeline
// for a single series.
package appflow

import (
	"fmt"

	"github.com/charmbracelet/huh/spinner"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/pkg/errors"

	"github.com/aniload/aniload/internal/api"
	"github.com/aniload/aniload/internal/downloader"
	"github.com/aniload/aniload/internal/models"
	"github.com/aniload/aniload/internal/scraper"
	"github.com/aniload/aniload/internal/tracking"
	"github.com/aniload/aniload/internal/util"
)

// FetchSeries loads and parses a series page into a typed Series,
// falling back to the info API when the page carries no player element.
func FetchSeries(seriesURL string) (*models.Series, error) {
	slug, err := scraper.SeriesSlug(seriesURL)
	if err != nil {
		return nil, err
	}

	var (
		series *models.Series
		runErr error
	)
	_ = spinner.New().
		Title("Fetching episode list...").
		Type(spinner.Dots).
		Action(func() {
			doc, err := api.FetchDocument(seriesURL)
			if err != nil {
				runErr = err
				return
			}

			s, err := scraper.ExtractSeries(doc, seriesURL)
			if err == nil {
				series = s
				return
			}

			// Series page without the player element: the info API
			// still knows the episode list.
			title, titleErr := scraper.ExtractTitle(doc)
			if titleErr != nil {
				runErr = err
				return
			}
			episodes, apiErr := scraper.FetchEpisodesFromInfoAPI(seriesURL)
			if apiErr != nil {
				util.Debugf("info API fallback failed: %v", apiErr)
				runErr = err
				return
			}
			series = &models.Series{
				Slug:     slug,
				Title:    title,
				URL:      seriesURL,
				Episodes: episodes,
			}
		}).
		Run()

	if runErr != nil {
		return nil, runErr
	}
	if series == nil {
		return nil, errors.New("series fetch interrupted")
	}
	util.Debugf("series %q: %d episodes", series.Title, len(series.Episodes))
	return series, nil
}

// RunSeries executes the whole pipeline for one series URL. seriesIndex
// and seriesTotal position the series inside a batch (0, 0 in single
// mode). Episode-level failures are logged inside the manager and do not
// surface here; only series-level failures do.
func RunSeries(outputRoot string, tracker *tracking.LocalTracker, seriesURL string, start, end *int, seriesIndex, seriesTotal int) error {
	series, err := FetchSeries(seriesURL)
	if err != nil {
		return err
	}

	selected, err := downloader.SelectRange(series.Episodes, start, end)
	if err != nil {
		return err
	}

	manager := downloader.NewManager(outputRoot, func(ref models.EpisodeRef) (string, error) {
		return scraper.ResolveMediaURL(seriesURL, ref)
	}, tracker)

	return manager.DownloadSeries(series, selected, seriesIndex, seriesTotal)
}

// RunSeriesPick lets the user fuzzy-find a single episode and downloads
// just that one.
func RunSeriesPick(outputRoot string, tracker *tracking.LocalTracker, seriesURL string) error {
	series, err := FetchSeries(seriesURL)
	if err != nil {
		return err
	}

	episode, err := PickEpisode(series.Episodes)
	if err != nil {
		return err
	}

	manager := downloader.NewManager(outputRoot, func(ref models.EpisodeRef) (string, error) {
		return scraper.ResolveMediaURL(seriesURL, ref)
	}, tracker)

	return manager.DownloadSeries(series, []models.EpisodeRef{episode}, 0, 0)
}

// PickEpisode selects one episode interactively with the fuzzy finder.
func PickEpisode(episodes []models.EpisodeRef) (models.EpisodeRef, error) {
	if len(episodes) == 0 {
		return models.EpisodeRef{}, errors.New("no episodes to pick from")
	}

	idx, err := fuzzyfinder.Find(
		episodes,
		func(i int) string {
			return fmt.Sprintf("Episode %s", episodes[i].Label)
		},
		fuzzyfinder.WithPromptString("Select the episode"),
	)
	if err != nil {
		return models.EpisodeRef{}, errors.Wrap(err, "failed to select episode")
	}
	return episodes[idx], nil
}
