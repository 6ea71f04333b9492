package api

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/aniload/aniload/internal/util"
)

// The info API mirrors the site's series pages: replacing the /anime/
// path segment with /info_api/ yields a JSON endpoint describing the
// same series.
const (
	animePathSegment   = "/anime/"
	infoAPIPathSegment = "/info_api/"

	embedRetries = 4
)

// infoResponse is the series-level payload of the info API.
type infoResponse struct {
	EpisodesCount int `json:"episodes_count"`
}

// episodeInfoResponse is the per-index payload of the info API.
type episodeInfoResponse struct {
	Episodes []struct {
		ID     json.Number `json:"id"`
		Number string      `json:"number"`
	} `json:"episodes"`
}

// InfoAPIURL derives the info API endpoint for a series page URL.
func InfoAPIURL(seriesURL string) (string, error) {
	if !strings.Contains(seriesURL, animePathSegment) {
		return "", errors.Wrapf(ErrNetwork, "URL %s has no %s segment", seriesURL, animePathSegment)
	}
	return strings.Replace(seriesURL, animePathSegment, infoAPIPathSegment, 1), nil
}

// EpisodeCount asks the info API how many episodes the series has.
func EpisodeCount(seriesURL string) (int, error) {
	apiURL, err := InfoAPIURL(seriesURL)
	if err != nil {
		return 0, err
	}

	resp, err := Get(apiURL)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			util.Warnf("Failed to close response body: %v", closeErr)
		}
	}()

	var info infoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return 0, errors.Wrapf(err, "failed to decode info API response from %s", apiURL)
	}
	return info.EpisodesCount, nil
}

// EpisodeIDAt fetches the locator of the episode at the given zero-based
// index from the info API.
func EpisodeIDAt(seriesURL string, index int) (string, string, error) {
	apiURL, err := InfoAPIURL(seriesURL)
	if err != nil {
		return "", "", err
	}
	indexURL := fmt.Sprintf("%s/%d?start_range=%d&end_range=%d", apiURL, index, index, index+1)

	body, err := GetWithRetry(indexURL)
	if err != nil {
		return "", "", err
	}

	var info episodeInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return "", "", errors.Wrapf(err, "failed to decode episode info from %s", indexURL)
	}
	if len(info.Episodes) == 0 {
		return "", "", errors.Wrapf(ErrNetwork, "no episode info at index %d", index)
	}
	last := info.Episodes[len(info.Episodes)-1]
	return last.ID.String(), last.Number, nil
}

// GetWithRetry fetches a URL, retrying HTTP-status failures with
// exponential backoff and jitter. Connection failures are not retried;
// episode downloads never go through this path.
func GetWithRetry(url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < embedRetries; attempt++ {
		body, retryable, err := getOnce(url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		if attempt < embedRetries-1 {
			delay := time.Duration(1<<uint(attempt))*time.Second +
				time.Duration(rand.Int63n(int64(2*time.Second)))
			util.Debugf("retrying %s in %v: %v", url, delay, err)
			time.Sleep(delay)
		}
	}
	return nil, lastErr
}

// getOnce performs a single attempt; the second return value reports
// whether the failure was an HTTP status worth retrying.
func getOnce(url string) ([]byte, bool, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, false, errors.Wrapf(ErrNetwork, "invalid request for %s: %v", url, err)
	}
	req.Header.Set("User-Agent", RandomUserAgent())

	resp, err := util.GetSharedClient().Do(req)
	if err != nil {
		return nil, false, errors.Wrapf(ErrNetwork, "GET %s: %v", url, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			util.Warnf("Failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, true, errors.Wrapf(ErrNetwork, "GET %s: %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, errors.Wrapf(ErrNetwork, "read body of %s: %v", url, err)
	}
	return body, false, nil
}
