package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelist/internal/config"
)

// API defines the remote operations the sync engine replays. Implemented by
// Client; engine tests substitute a stub.
type API interface {
	FetchMovies(ctx context.Context) ([]Movie, error)
	FetchPeople(ctx context.Context) ([]Person, error)
	AddRecommendation(ctx context.Context, imdbID string, req AddRecommendationRequest) error
	AddRecommendationsBulk(ctx context.Context, imdbID string, req BulkRecommendationsRequest) error
	RemoveRecommendation(ctx context.Context, imdbID, person string) error
	MarkWatched(ctx context.Context, imdbID string, req WatchRequest) error
	UpdateStatus(ctx context.Context, imdbID string, req StatusRequest) error
	UpdatePerson(ctx context.Context, name string, req PersonUpdateRequest) error
	RefreshMetadata(ctx context.Context, imdbID string) (*Movie, error)
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Client is a stateless wrapper around the recommendation service's REST API.
// It reports each call's outcome and classification; retry policy lives in
// the sync engine, never here.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a remote client from configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Server.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("server base url required")
	}
	timeout := time.Duration(cfg.Server.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Server.APIToken),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FetchMovies pulls the full authoritative movie collection.
func (c *Client) FetchMovies(ctx context.Context) ([]Movie, error) {
	var movies []Movie
	if err := c.do(ctx, "fetch movies", http.MethodGet, "/movies", nil, &movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// FetchPeople pulls the full authoritative recommender collection.
func (c *Client) FetchPeople(ctx context.Context) ([]Person, error) {
	var people []Person
	if err := c.do(ctx, "fetch people", http.MethodGet, "/people", nil, &people); err != nil {
		return nil, err
	}
	return people, nil
}

// AddRecommendation records one person's vote on a movie.
func (c *Client) AddRecommendation(ctx context.Context, imdbID string, req AddRecommendationRequest) error {
	path := fmt.Sprintf("/movies/%s/recommendations", url.PathEscape(imdbID))
	return c.do(ctx, "add recommendation", http.MethodPost, path, req, nil)
}

// AddRecommendationsBulk records several recommenders in one atomic call.
// Partial per-recommender success is not supported by this API shape.
func (c *Client) AddRecommendationsBulk(ctx context.Context, imdbID string, req BulkRecommendationsRequest) error {
	path := fmt.Sprintf("/movies/%s/recommendations/bulk", url.PathEscape(imdbID))
	return c.do(ctx, "add recommendations bulk", http.MethodPost, path, req, nil)
}

// RemoveRecommendation deletes one person's vote on a movie.
func (c *Client) RemoveRecommendation(ctx context.Context, imdbID, person string) error {
	path := fmt.Sprintf("/movies/%s/recommendations/%s", url.PathEscape(imdbID), url.PathEscape(person))
	return c.do(ctx, "remove recommendation", http.MethodDelete, path, nil, nil)
}

// MarkWatched records a watch event with a rating.
func (c *Client) MarkWatched(ctx context.Context, imdbID string, req WatchRequest) error {
	path := fmt.Sprintf("/movies/%s/watch", url.PathEscape(imdbID))
	return c.do(ctx, "mark watched", http.MethodPut, path, req, nil)
}

// UpdateStatus changes a movie's watch state.
func (c *Client) UpdateStatus(ctx context.Context, imdbID string, req StatusRequest) error {
	path := fmt.Sprintf("/movies/%s/status", url.PathEscape(imdbID))
	return c.do(ctx, "update status", http.MethodPut, path, req, nil)
}

// UpdatePerson changes a recommender's trust flag.
func (c *Client) UpdatePerson(ctx context.Context, name string, req PersonUpdateRequest) error {
	path := fmt.Sprintf("/people/%s", url.PathEscape(name))
	return c.do(ctx, "update person", http.MethodPut, path, req, nil)
}

// RefreshMetadata asks the server to rebuild a movie's descriptive snapshot
// and returns the refreshed record.
func (c *Client) RefreshMetadata(ctx context.Context, imdbID string) (*Movie, error) {
	path := fmt.Sprintf("/movies/%s/refresh", url.PathEscape(imdbID))
	var movie Movie
	if err := c.do(ctx, "refresh metadata", http.MethodPost, path, nil, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// Search queries the catalog by free text for unresolved-item disambiguation.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	path := "/external/search?q=" + url.QueryEscape(query)
	var results []SearchResult
	if err := c.do(ctx, "search catalog", http.MethodGet, path, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", operation, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", operation, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(operation, resp.StatusCode, string(payload))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", operation, err)
		}
	}
	return nil
}
