package downloader

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniload/aniload/internal/api"
	"github.com/aniload/aniload/internal/models"
)

// recordingSender stands in for the progress display in tests.
type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
}

func (s *recordingSender) countDone() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, msg := range s.msgs {
		if _, ok := msg.(taskDoneMsg); ok {
			n++
		}
	}
	return n
}

func TestDownload_WritesDeclaredSize(t *testing.T) {
	body := make([]byte, 64*1024)
	for i := range body {
		body[i] = byte(i % 251)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		_, _ = w.Write(body)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "series", "01.mp4")
	m := NewManager(t.TempDir(), nil, nil)

	var lastReceived, lastTotal int64
	err := m.Download(models.DownloadTask{
		Num:      1,
		MediaURL: server.URL + "/video",
		DestPath: dest,
	}, func(received, total int64) {
		lastReceived, lastTotal = received, total
	})
	require.NoError(t, err)

	stat, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), stat.Size())
	assert.Equal(t, int64(len(body)), lastReceived)
	assert.Equal(t, int64(len(body)), lastTotal)
}

func TestDownload_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "01.mp4")
	m := NewManager(t.TempDir(), nil, nil)

	err := m.Download(models.DownloadTask{Num: 1, MediaURL: server.URL, DestPath: dest}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDownload)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no file should be created on a bad status")
}

func TestDownload_MidStreamDropIsReported(t *testing.T) {
	// Declare more bytes than we send, then cut the connection.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100000")
		_, _ = w.Write(make([]byte, 1000))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		conn, _, hijackErr := w.(http.Hijacker).Hijack()
		if hijackErr == nil {
			_ = conn.Close()
		}
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "01.mp4")
	m := NewManager(t.TempDir(), nil, nil)

	err := m.Download(models.DownloadTask{Num: 1, MediaURL: server.URL, DestPath: dest}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNetwork)

	// The partial file stays on disk; a fresh run overwrites it.
	stat, statErr := os.Stat(dest)
	require.NoError(t, statErr)
	assert.Less(t, stat.Size(), int64(100000))
}

func TestDownload_RerunOverwrites(t *testing.T) {
	payload := []byte("fresh bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "01.mp4")
	require.NoError(t, os.WriteFile(dest, make([]byte, 4096), 0o644))

	m := NewManager(t.TempDir(), nil, nil)
	err := m.Download(models.DownloadTask{Num: 1, MediaURL: server.URL, DestPath: dest}, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestRunDownloads_LateFailureAfterDisplayStops(t *testing.T) {
	// One episode fails slowly while the display side has already stopped
	// reading: the failure must still land on the open channel, and the
	// channel must close only after every task has been attempted.
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	})
	mux.HandleFunc("/slow-fail", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		http.Error(w, "gone", http.StatusNotFound)
	})

	dir := t.TempDir()
	tasks := []models.DownloadTask{
		{Num: 1, MediaURL: server.URL + "/ok", DestPath: filepath.Join(dir, "01.mp4")},
		{Num: 2, MediaURL: server.URL + "/slow-fail", DestPath: filepath.Join(dir, "02.mp4")},
		{Num: 3, MediaURL: server.URL + "/ok", DestPath: filepath.Join(dir, "03.mp4")},
	}

	m := NewManager(dir, nil, nil)
	sender := &recordingSender{}
	failures := make(chan error, len(tasks))

	done := make(chan struct{})
	go func() {
		m.runDownloads(tasks, sender, failures)
		close(failures)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("downloads did not drain")
	}

	var failed []error
	for err := range failures {
		failed = append(failed, err)
	}
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0], ErrDownload)

	// Every task was attempted before the channel closed.
	assert.Equal(t, len(tasks), sender.countDone())
	assert.FileExists(t, tasks[0].DestPath)
	assert.FileExists(t, tasks[2].DestPath)
}

func TestResolveTasks_SkipsFailedEpisodes(t *testing.T) {
	series := &models.Series{Title: "Test Series"}
	selected := []models.EpisodeRef{{Num: 1, ID: "a"}, {Num: 2, ID: "b"}, {Num: 3, ID: "c"}}

	m := NewManager(t.TempDir(), func(ref models.EpisodeRef) (string, error) {
		if ref.Num == 2 {
			return "", fmt.Errorf("no media reference found")
		}
		return fmt.Sprintf("https://cdn.example.net/dl?filename=ep%d.mp4", ref.Num), nil
	}, nil)

	tasks := m.resolveTasks(series, selected, t.TempDir())
	require.Len(t, tasks, 2)
	assert.Equal(t, 1, tasks[0].Num)
	assert.Equal(t, 3, tasks[1].Num)
}
