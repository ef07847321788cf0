package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"phimhub/pkg/models"
)

// HTTPStore talks to the history endpoints of a phimhub API server. It is
// what a remote playback client plugs into a Reporter; server-side code
// uses the history repo directly instead.
type HTTPStore struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPStore(baseURL, token string) *HTTPStore {
	return &HTTPStore{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPStore) Report(ctx context.Context, entry models.WatchHistoryEntry) error {
	return s.doJSON(ctx, http.MethodPost, s.BaseURL+"/users/history", entry, nil)
}

func (s *HTTPStore) Resume(ctx context.Context, userID, movieSlug, episodeSlug string) (*models.WatchHistoryEntry, error) {
	// The server scopes history to the bearer token, so userID rides along
	// only for interface symmetry with the local repo.
	endpoint := s.BaseURL + "/users/history/" + url.PathEscape(movieSlug)
	var entry models.WatchHistoryEntry
	status, err := s.doJSONStatus(ctx, http.MethodGet, endpoint, nil, &entry)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return &entry, nil
}

func (s *HTTPStore) doJSON(ctx context.Context, method, endpoint string, payload any, out any) error {
	status, err := s.doJSONStatus(ctx, method, endpoint, payload, out)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("%s %s failed: status %d", method, endpoint, status)
	}
	return nil
}

func (s *HTTPStore) doJSONStatus(ctx context.Context, method, endpoint string, payload any, out any) (int, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
