// Package scraper extracts typed episode data from AnimeUnity pages.
// Everything here is a pure function over a parsed document so that
// site markup drift stays contained in this package.
package scraper

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/aniload/aniload/internal/models"
)

// ErrParse marks an expected structural marker missing from a page,
// usually meaning the site layout changed. A series-page parse failure
// aborts that series only; an episode-page one skips that episode.
var ErrParse = errors.New("parse error")

var (
	seriesURLRe   = regexp.MustCompile(`^https?://[^/]+/anime/([^/?#]+)`)
	downloadURLRe = regexp.MustCompile(`window\.downloadUrl\s*=\s*'(https?://[^\s']+)'`)
	episodeNumRe  = regexp.MustCompile(`\d+`)
)

// episodeAttr mirrors one entry of the JSON carried by the series page's
// <video-player episodes="..."> attribute.
type episodeAttr struct {
	ID     json.Number `json:"id"`
	Number string      `json:"number"`
}

// SeriesSlug extracts the series identifier from a series page URL.
func SeriesSlug(pageURL string) (string, error) {
	match := seriesURLRe.FindStringSubmatch(pageURL)
	if len(match) < 2 {
		return "", errors.Wrapf(ErrParse, "unrecognized series URL: %s", pageURL)
	}
	return match[1], nil
}

// ExtractSeries builds a typed Series from a parsed series page.
func ExtractSeries(doc *goquery.Document, pageURL string) (*models.Series, error) {
	slug, err := SeriesSlug(pageURL)
	if err != nil {
		return nil, err
	}

	title, err := ExtractTitle(doc)
	if err != nil {
		return nil, err
	}

	episodes, err := ExtractEpisodes(doc)
	if err != nil {
		return nil, err
	}

	return &models.Series{
		Slug:     slug,
		Title:    title,
		URL:      pageURL,
		Episodes: episodes,
	}, nil
}

// ExtractTitle reads the series title from a series page.
func ExtractTitle(doc *goquery.Document) (string, error) {
	title := strings.TrimSpace(doc.Find("h1.title").First().Text())
	if title == "" {
		return "", errors.Wrap(ErrParse, "series title tag not found")
	}
	return title, nil
}

// ExtractEpisodes reads the episode list embedded in the series page.
func ExtractEpisodes(doc *goquery.Document) ([]models.EpisodeRef, error) {
	attr, ok := doc.Find("video-player").First().Attr("episodes")
	if !ok {
		return nil, errors.Wrap(ErrParse, "video-player episodes attribute not found")
	}

	var raw []episodeAttr
	if err := json.Unmarshal([]byte(attr), &raw); err != nil {
		return nil, errors.Wrapf(ErrParse, "malformed episodes attribute: %v", err)
	}
	if len(raw) == 0 {
		return nil, errors.Wrap(ErrParse, "episode list is empty")
	}

	episodes := make([]models.EpisodeRef, 0, len(raw))
	for i, entry := range raw {
		num, err := ParseEpisodeNumber(entry.Number)
		if err != nil {
			// Specials without a digit keep their list position.
			num = i + 1
		}
		label := entry.Number
		if label == "" {
			label = strconv.Itoa(num)
		}
		episodes = append(episodes, models.EpisodeRef{
			Num:   num,
			Label: label,
			ID:    entry.ID.String(),
		})
	}

	sort.Slice(episodes, func(i, j int) bool {
		return episodes[i].Num < episodes[j].Num
	})
	return episodes, nil
}

// ParseEpisodeNumber pulls the numeric episode number out of a display
// label such as "Episode 12" or "12.5".
func ParseEpisodeNumber(label string) (int, error) {
	numStr := episodeNumRe.FindString(label)
	if numStr == "" {
		return 0, errors.Wrapf(ErrParse, "no episode number in %q", label)
	}
	return strconv.Atoi(numStr)
}

// EmbedURL builds the embed endpoint for an episode. Its response body
// is the player page URL for that episode.
func EmbedURL(seriesURL, episodeID string) (string, error) {
	parsed, err := url.Parse(seriesURL)
	if err != nil || parsed.Host == "" {
		return "", errors.Wrapf(ErrParse, "cannot derive host from %s", seriesURL)
	}
	return fmt.Sprintf("%s://%s/embed-url/%s", parsed.Scheme, parsed.Host, episodeID), nil
}

// ExtractDownloadURL scans the player page's script tags for the direct
// media URL literal.
func ExtractDownloadURL(doc *goquery.Document) (string, error) {
	var found string
	doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if match := downloadURLRe.FindStringSubmatch(s.Text()); len(match) > 1 {
			found = match[1]
			return false
		}
		return true
	})
	if found == "" {
		return "", errors.Wrap(ErrParse, "download URL literal not found in player page")
	}
	return found, nil
}
