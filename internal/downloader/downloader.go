// Package downloader runs the bounded-concurrency episode download
// pipeline: range selection, media URL resolution, chunked streaming to
// disk and the progress display.
package downloader

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"github.com/aniload/aniload/internal/api"
	"github.com/aniload/aniload/internal/models"
	"github.com/aniload/aniload/internal/tracking"
	"github.com/aniload/aniload/internal/util"
)

// ErrDownload marks a non-success HTTP status on the media URL itself.
var ErrDownload = errors.New("download error")

const (
	// downloadWorkers bounds concurrent episode downloads per series.
	downloadWorkers = 3
	// resolverWorkers bounds concurrent media URL resolutions.
	resolverWorkers = 8

	kb = 1024
	mb = 1024 * kb
)

// Resolver turns an episode locator into a direct media URL. Injected so
// tests can run the manager without the live site.
type Resolver func(ref models.EpisodeRef) (string, error)

// Manager orchestrates the downloads of one series at a time. Series in
// a batch run sequentially; episodes within a series run concurrently up
// to downloadWorkers.
type Manager struct {
	outputRoot string
	resolve    Resolver
	tracker    *tracking.LocalTracker // optional, download history only
}

// NewManager creates a download manager rooted at outputRoot.
func NewManager(outputRoot string, resolve Resolver, tracker *tracking.LocalTracker) *Manager {
	return &Manager{
		outputRoot: outputRoot,
		resolve:    resolve,
		tracker:    tracker,
	}
}

// DownloadSeries resolves and downloads the selected episodes of one
// series, rendering progress until every task has been attempted.
// Individual episode failures are logged and do not abort siblings.
func (m *Manager) DownloadSeries(series *models.Series, selected []models.EpisodeRef, seriesIndex, seriesTotal int) error {
	destDir := filepath.Join(m.outputRoot, util.SanitizeDirName(series.Title))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create download directory %s", destDir)
	}

	tasks := m.resolveTasks(series, selected, destDir)
	if len(tasks) == 0 {
		return errors.Wrap(ErrDownload, "no episode could be resolved to a media URL")
	}

	model := newSeriesModel(series.Title, selected, seriesIndex, seriesTotal)
	program := tea.NewProgram(model)

	// The download goroutine owns the failures channel: it closes it only
	// after every worker has finished, so an interrupted display can never
	// race a late failure onto a closed channel.
	failures := make(chan error, len(tasks))
	go func() {
		m.runDownloads(tasks, program, failures)
		close(failures)
		// Let the final task frames land before tearing the display down.
		time.Sleep(200 * time.Millisecond)
		program.Send(seriesDoneMsg{})
	}()

	_, runErr := program.Run()

	// Even when the display quits early (ctrl+c), in-flight downloads of
	// this series must drain before the next series starts. Ranging over
	// failures blocks until the download goroutine closes it.
	failed := 0
	for err := range failures {
		failed++
		util.Errorf("%s: %v", series.Title, err)
	}
	if runErr != nil {
		return errors.Wrap(runErr, "progress display error")
	}
	util.Infof("%s: %d/%d episodes downloaded", series.Title, len(tasks)-failed, len(tasks))
	return nil
}

// resolveTasks visits each selected episode's embed endpoint and builds
// the download tasks. Episodes that cannot be resolved are logged and
// skipped; the rest of the series continues.
func (m *Manager) resolveTasks(series *models.Series, selected []models.EpisodeRef, destDir string) []models.DownloadTask {
	maxNum := 0
	for _, ep := range selected {
		if ep.Num > maxNum {
			maxNum = ep.Num
		}
	}

	results := make([]*models.DownloadTask, len(selected))
	pool := util.NewWorkerPool(resolverWorkers)
	for i, ep := range selected {
		index, ref := i, ep
		pool.Submit(func() {
			mediaURL, err := m.resolve(ref)
			if err != nil {
				util.Warnf("episode %d: cannot resolve media URL, skipping: %v", ref.Num, err)
				return
			}
			results[index] = &models.DownloadTask{
				Num:      ref.Num,
				MediaURL: mediaURL,
				DestPath: filepath.Join(destDir, EpisodeFileName(ref.Num, maxNum, mediaURL)),
			}
		})
	}
	pool.Wait()

	tasks := make([]models.DownloadTask, 0, len(selected))
	for _, t := range results {
		if t != nil {
			tasks = append(tasks, *t)
		}
	}
	return tasks
}

// progressSender is the part of *tea.Program the workers use.
type progressSender interface {
	Send(msg tea.Msg)
}

// runDownloads streams every task through the fixed-size worker pool,
// publishing progress to the display program. The failures channel stays
// open until every task has been attempted.
func (m *Manager) runDownloads(tasks []models.DownloadTask, program progressSender, failures chan<- error) {
	pool := util.NewWorkerPool(downloadWorkers)
	for _, task := range tasks {
		t := task
		pool.Submit(func() {
			program.Send(taskStartedMsg{num: t.Num})
			err := m.Download(t, func(received, total int64) {
				program.Send(taskProgressMsg{num: t.Num, received: received, total: total})
			})
			program.Send(taskDoneMsg{num: t.Num, err: err})
			if err != nil {
				failures <- errors.Wrapf(err, "episode %d", t.Num)
				return
			}
			m.recordDownload(t)
		})
	}
	pool.Wait()
}

// Download streams one task's media URL to its destination file in
// chunks, reporting progress after each chunk. A mid-stream failure
// leaves the partial file in place; a fresh run overwrites it.
func (m *Manager) Download(task models.DownloadTask, onProgress func(received, total int64)) error {
	req, err := http.NewRequest(http.MethodGet, task.MediaURL, nil)
	if err != nil {
		return errors.Wrapf(api.ErrNetwork, "invalid media URL %s: %v", task.MediaURL, err)
	}
	req.Header.Set("User-Agent", api.RandomUserAgent())

	resp, err := util.GetDownloadClient().Do(req)
	if err != nil {
		return errors.Wrapf(api.ErrNetwork, "GET %s: %v", task.MediaURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			util.Warnf("Failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrDownload, "GET %s: %s", task.MediaURL, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(task.DestPath), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", task.DestPath)
	}
	out, err := os.Create(task.DestPath)
	if err != nil {
		return errors.Wrapf(err, "failed to create file %s", task.DestPath)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil {
			util.Warnf("Failed to close output file: %v", closeErr)
		}
	}()

	total := resp.ContentLength
	buffer := make([]byte, chunkSize(total))
	var received int64

	for {
		n, readErr := resp.Body.Read(buffer)
		if n > 0 {
			if _, writeErr := out.Write(buffer[:n]); writeErr != nil {
				return errors.Wrapf(writeErr, "failed to write to %s", task.DestPath)
			}
			received += int64(n)
			if onProgress != nil {
				onProgress(received, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return errors.Wrapf(api.ErrNetwork, "connection dropped after %d bytes: %v", received, readErr)
		}
	}

	if total > 0 && received != total {
		return errors.Wrapf(api.ErrNetwork, "truncated body: got %d of %d bytes", received, total)
	}
	return nil
}

// chunkSize picks a streaming chunk size from the declared content
// length: small files in 256 KiB steps, up to 4 MiB for very large ones.
func chunkSize(total int64) int {
	switch {
	case total <= 0 || total < 50*mb:
		return 256 * kb
	case total < 100*mb:
		return 512 * kb
	case total < 250*mb:
		return 2 * mb
	default:
		return 4 * mb
	}
}

func (m *Manager) recordDownload(task models.DownloadTask) {
	if m.tracker == nil {
		return
	}
	stat, err := os.Stat(task.DestPath)
	var size int64
	if err == nil {
		size = stat.Size()
	}
	entry := tracking.Entry{
		Series:       filepath.Base(filepath.Dir(task.DestPath)),
		Episode:      task.Num,
		Path:         task.DestPath,
		Bytes:        size,
		MediaURL:     task.MediaURL,
		DownloadedAt: time.Now().UTC(),
	}
	if err := m.tracker.Record(entry); err != nil {
		util.Debugf("failed to record download history: %v", err)
	}
}
