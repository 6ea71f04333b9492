// Package models contains the typed structures produced at the scraping
// boundary and consumed by the download pipeline.
package models

// Series represents one anime title with its ordered episode list.
// It is immutable after extraction from the series page.
type Series struct {
	Slug     string
	Title    string
	URL      string
	Episodes []EpisodeRef
}

// EpisodeRef identifies a single episode on the source site.
// Num is the numeric episode number, unique within a series; range
// selection matches on it, never on slice position.
type EpisodeRef struct {
	Num   int
	Label string // display label as shown on the site ("1", "OVA 2", ...)
	ID    string // opaque locator used to build the episode's embed URL
}

// DownloadTask couples a resolved direct media URL with its destination
// on disk. Tasks exist only for the duration of one series' download run.
type DownloadTask struct {
	Num      int
	MediaURL string
	DestPath string
}
