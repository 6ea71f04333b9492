// Package tracking keeps a local SQLite history of completed downloads.
// The history is observational only: the pipeline never consults it to
// skip work, a re-run always downloads again.
package tracking

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	defaultCacheSize  = -20000 // 20MB
	busyTimeout       = 5000   // milliseconds
	walAutoCheckpoint = 1000   // pages
	maxOpenConns      = 5
	maxIdleConns      = 2
)

// Entry is one completed episode download.
type Entry struct {
	Series       string    `json:"series"`
	Episode      int       `json:"episode"`
	Path         string    `json:"path"`
	Bytes        int64     `json:"bytes"`
	MediaURL     string    `json:"media_url"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// LocalTracker records completed downloads in a local SQLite database.
type LocalTracker struct {
	db       *sql.DB
	insertPS *sql.Stmt
	listPS   *sql.Stmt
}

// NewLocalTracker opens (creating if needed) the history database at
// dbPath.
func NewLocalTracker(dbPath string) (*LocalTracker, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}

	// SQLite needs forward slashes in URI paths on Windows.
	path := dbPath
	if runtime.GOOS == "windows" {
		path = strings.ReplaceAll(dbPath, "\\", "/")
	}
	dsn := fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_synchronous=NORMAL&_wal_autocheckpoint=%d&_busy_timeout=%d&_cache_size=%d",
		path, walAutoCheckpoint, busyTimeout, defaultCacheSize,
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history database")
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	const schema = `
	CREATE TABLE IF NOT EXISTS downloads (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		series        TEXT NOT NULL,
		episode       INTEGER NOT NULL,
		path          TEXT NOT NULL,
		bytes         INTEGER NOT NULL,
		media_url     TEXT NOT NULL,
		downloaded_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_downloads_series ON downloads(series);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create downloads table")
	}

	insertPS, err := db.Prepare(
		`INSERT INTO downloads (series, episode, path, bytes, media_url, downloaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to prepare insert statement")
	}

	listPS, err := db.Prepare(
		`SELECT series, episode, path, bytes, media_url, downloaded_at
		 FROM downloads WHERE series = ? ORDER BY downloaded_at`)
	if err != nil {
		_ = insertPS.Close()
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to prepare list statement")
	}

	return &LocalTracker{db: db, insertPS: insertPS, listPS: listPS}, nil
}

// Record appends one completed download to the history.
func (t *LocalTracker) Record(e Entry) error {
	if t == nil {
		return nil
	}
	_, err := t.insertPS.Exec(e.Series, e.Episode, e.Path, e.Bytes, e.MediaURL, e.DownloadedAt)
	return errors.Wrap(err, "failed to record download")
}

// History returns the recorded downloads of one series in order.
func (t *LocalTracker) History(series string) ([]Entry, error) {
	if t == nil {
		return nil, nil
	}
	rows, err := t.listPS.Query(series)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query history")
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Series, &e.Episode, &e.Path, &e.Bytes, &e.MediaURL, &e.DownloadedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan history row")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the prepared statements and the database handle.
func (t *LocalTracker) Close() error {
	if t == nil {
		return nil
	}
	if t.insertPS != nil {
		_ = t.insertPS.Close()
	}
	if t.listPS != nil {
		_ = t.listPS.Close()
	}
	return t.db.Close()
}
