package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_SendsKnownUserAgent(t *testing.T) {
	known := make(map[string]bool)
	for _, ua := range UserAgents() {
		known[ua] = true
	}

	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	resp, err := Get(server.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.True(t, known[gotUA], "User-Agent %q not in the rotation set", gotUA)
}

func TestGet_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	_, err := Get(server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestGet_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // now nothing is listening

	_, err := Get(server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestFetchDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1 class="title">Show</h1></body></html>`)
	}))
	defer server.Close()

	doc, err := FetchDocument(server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Show", doc.Find("h1.title").Text())
}

func TestInfoAPIURL(t *testing.T) {
	t.Parallel()

	apiURL, err := InfoAPIURL("https://www.animeunity.to/anime/42-show")
	require.NoError(t, err)
	assert.Equal(t, "https://www.animeunity.to/info_api/42-show", apiURL)

	_, err = InfoAPIURL("https://www.animeunity.to/watch/42")
	require.Error(t, err)
}

func TestEpisodeCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/info_api/42-show", r.URL.Path)
		fmt.Fprint(w, `{"episodes_count": 26}`)
	}))
	defer server.Close()

	count, err := EpisodeCount(server.URL + "/anime/42-show")
	require.NoError(t, err)
	assert.Equal(t, 26, count)
}

func TestEpisodeIDAt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/info_api/42-show/4", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("start_range"))
		assert.Equal(t, "5", r.URL.Query().Get("end_range"))
		fmt.Fprint(w, `{"episodes": [{"id": 8999, "number": "4"}, {"id": 9004, "number": "5"}]}`)
	}))
	defer server.Close()

	id, label, err := EpisodeIDAt(server.URL+"/anime/42-show", 4)
	require.NoError(t, err)
	// The last entry of the window is the episode at the index.
	assert.Equal(t, "9004", id)
	assert.Equal(t, "5", label)
}

func TestRandomUserAgent_AlwaysFromSet(t *testing.T) {
	t.Parallel()

	known := make(map[string]bool)
	for _, ua := range UserAgents() {
		known[ua] = true
	}
	for i := 0; i < 50; i++ {
		assert.True(t, known[RandomUserAgent()])
	}
}
