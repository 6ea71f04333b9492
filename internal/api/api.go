// Package api implements the HTTP boundary: safe transports, randomized
// browser identification and the AnimeUnity info API.
package api

import (
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/aniload/aniload/internal/util"
)

// ErrNetwork marks connectivity failures and non-success HTTP statuses.
// Callers decide whether a network failure aborts the series or only the
// one episode.
var ErrNetwork = errors.New("network error")

// Get performs a GET request with a randomized browser User-Agent using
// the shared pooled client. A connection failure or non-2xx status is
// reported as ErrNetwork; the caller owns the body on success.
func Get(url string) (*http.Response, error) {
	return getWithClient(url, util.GetSharedClient())
}

func getWithClient(url string, client *http.Client) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "invalid request for %s: %v", url, err)
	}
	req.Header.Set("User-Agent", RandomUserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "GET %s: %v", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, errors.Wrapf(ErrNetwork, "GET %s: %s", url, resp.Status)
	}
	return resp, nil
}

// FetchDocument fetches a page and parses it into a goquery document.
func FetchDocument(url string) (*goquery.Document, error) {
	resp, err := Get(url)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			util.Warnf("Failed to close response body: %v", closeErr)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse HTML from %s", url)
	}
	return doc, nil
}
