package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/someonesays/roomserver/internal/domain"
)

// HTTPStore talks to the content API over plain HTTP. Lookups have no
// internal retry; a failed settings change is reported to the host and
// can simply be retried.
type HTTPStore struct {
	base   string
	client *http.Client
}

func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		base:   baseURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPStore) Minigame(ctx context.Context, id string) (*domain.Minigame, error) {
	var m domain.Minigame
	if err := s.get(ctx, "/api/minigames/"+url.PathEscape(id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *HTTPStore) Pack(ctx context.Context, id string) (*domain.Pack, error) {
	var p domain.Pack
	if err := s.get(ctx, "/api/packs/"+url.PathEscape(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *HTTPStore) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+path, nil)
	if err != nil {
		return fmt.Errorf("build content request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("content lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("content lookup: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode content response: %w", err)
	}
	return nil
}
