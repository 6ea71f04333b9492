// Package batch drives the sequential processing of a URLs.txt file:
// one series at a time, never aborting the remaining list on a failure.
package batch

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/aniload/aniload/internal/util"
)

// URLFile is the fixed batch input file name, looked up in the working
// directory.
const URLFile = "URLs.txt"

// SeriesFunc runs the single-series pipeline for one URL. index is
// 1-based; total is the batch size.
type SeriesFunc func(url string, index, total int) error

// ReadURLFile reads the newline-delimited series URLs, skipping blank
// lines. Lines are not validated here; a malformed URL fails at fetch
// time and only aborts its own series.
func ReadURLFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		urls = append(urls, line)
	}
	return urls, nil
}

// ClearURLFile truncates the batch file once a run has completed.
func ClearURLFile(path string) error {
	return errors.Wrapf(os.WriteFile(path, nil, 0o644), "failed to clear %s", path)
}

// Run processes every URL in order and returns the number of series that
// failed. A failing series is logged and the batch moves on.
func Run(urls []string, process SeriesFunc) int {
	failed := 0
	for i, url := range urls {
		util.Infof("series %d/%d: %s", i+1, len(urls), url)
		if err := process(url, i+1, len(urls)); err != nil {
			failed++
			util.Errorf("series %d/%d failed: %v", i+1, len(urls), err)
			continue
		}
	}
	return failed
}
