package util

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeDirName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain title", "Cowboy Bebop", "Cowboy Bebop"},
		{"path separators", "Fate/Zero", "Fate_Zero"},
		{"windows reserved chars", `What? "Now": <Go>|Anime*`, "What_ _Now__ _Go__Anime_"},
		{"backslash", `a\b`, "a_b"},
		{"surrounding whitespace", "  Trim Me  ", "Trim Me"},
		{"empty", "", "_"},
		{"only invalid chars", "???", "___"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeDirName(tt.input))
		})
	}
}

func TestWorkerPool_RunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(3)

	var count int64
	for i := 0; i < 20; i++ {
		pool.Submit(func() {
			atomic.AddInt64(&count, 1)
		})
	}
	pool.Wait()

	assert.Equal(t, int64(20), atomic.LoadInt64(&count))
}

func TestWorkerPool_LimitsConcurrency(t *testing.T) {
	const maxWorkers = 3
	pool := NewWorkerPool(maxWorkers)

	var mu sync.Mutex
	running, peak := 0, 0
	for i := 0; i < 12; i++ {
		pool.Submit(func() {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()

			mu.Lock()
			running--
			mu.Unlock()
		})
	}
	pool.Wait()

	assert.LessOrEqual(t, peak, maxWorkers)
}
