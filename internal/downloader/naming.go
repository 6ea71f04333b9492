package downloader

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// fileNameChars keeps letters, numbers, underscores, dashes and dots.
var fileNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// EpisodeFileName builds the destination file name for an episode. The
// name always starts with the zero-padded episode number; the rest comes
// from the media URL when it carries one, so re-runs land on the same
// path and simply overwrite.
func EpisodeFileName(num, maxNum int, mediaURL string) string {
	width := len(strconv.Itoa(maxNum))
	if width < 2 {
		width = 2
	}
	prefix := fmt.Sprintf("%0*d", width, num)

	name := fileNameFromURL(mediaURL)
	if name == "" {
		return prefix + ".mp4"
	}
	return prefix + "_" + name
}

// fileNameFromURL extracts the file name the source encodes after the
// last '=' of a download link, cleaned of special characters.
func fileNameFromURL(mediaURL string) string {
	if mediaURL == "" {
		return ""
	}
	var raw string
	if strings.Contains(mediaURL, "=") {
		parts := strings.Split(mediaURL, "=")
		raw = parts[len(parts)-1]
	} else if parsed, err := url.Parse(mediaURL); err == nil {
		// No '=' segment: fall back to the URL path base.
		raw = parsed.Path[strings.LastIndex(parsed.Path, "/")+1:]
	}
	if raw == "" {
		return ""
	}
	if unescaped, err := url.QueryUnescape(raw); err == nil {
		raw = unescaped
	}
	return fileNameChars.ReplaceAllString(raw, "")
}
