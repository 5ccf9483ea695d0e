package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/someonesays/roomserver/internal/domain"
)

func newContentAPI(t *testing.T) *HTTPStore {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/minigames/duel", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"duel","name":"Duel","proxyUrl":"https://games.test/duel","minimumPlayers":2}`))
	})
	mux.HandleFunc("/api/packs/party", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"party","name":"Party","minigameIds":["duel"]}`))
	})
	mux.HandleFunc("/api/minigames/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewHTTPStore(srv.URL)
}

func TestHTTPStore_Minigame(t *testing.T) {
	store := newContentAPI(t)

	m, err := store.Minigame(context.Background(), "duel")
	require.NoError(t, err)
	assert.Equal(t, &domain.Minigame{
		ID:             "duel",
		Name:           "Duel",
		ProxyURL:       "https://games.test/duel",
		MinimumPlayers: 2,
	}, m)
}

func TestHTTPStore_Pack(t *testing.T) {
	store := newContentAPI(t)

	p, err := store.Pack(context.Background(), "party")
	require.NoError(t, err)
	assert.Equal(t, &domain.Pack{ID: "party", Name: "Party", MinigameIDs: []string{"duel"}}, p)
	assert.True(t, p.Contains("duel"))
	assert.False(t, p.Contains("trivia"))
}

func TestHTTPStore_NotFound(t *testing.T) {
	store := newContentAPI(t)

	_, err := store.Minigame(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Pack(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPStore_UpstreamErrorIsNotNotFound(t *testing.T) {
	store := newContentAPI(t)

	_, err := store.Minigame(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
