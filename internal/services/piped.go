package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sciencebindu-backend/internal/metrics"
	"sciencebindu-backend/internal/models"
)

const categoryFeedSize = 10

var ErrAllMirrorsFailed = errors.New("All Piped instances failed")

// PipedClient searches videos through an ordered list of Piped API mirrors.
// Mirrors are tried in order, each under its own timeout, and the first 2xx
// response with a decodable body wins.
type PipedClient struct {
	mirrors    []string
	timeout    time.Duration
	httpClient *http.Client
}

func NewPipedClient(mirrors []string, timeout time.Duration) *PipedClient {
	return &PipedClient{
		mirrors:    mirrors,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

type pipedSearchResponse struct {
	Items []pipedItem `json:"items"`
}

type pipedItem struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Thumbnail    string `json:"thumbnail"`
	UploaderName string `json:"uploaderName"`
	Duration     int    `json:"duration"`
}

// Search returns every video the first responding mirror finds for q.
func (c *PipedClient) Search(ctx context.Context, q string) ([]models.VideoItem, error) {
	items, err := c.fetch(ctx, searchEndpoint(q))
	if err != nil {
		return nil, err
	}
	return toVideoItems(items, 0), nil
}

// CategoryFeed returns the first ten results for a category's search query.
func (c *PipedClient) CategoryFeed(ctx context.Context, category models.VideoCategory) ([]models.VideoItem, error) {
	items, err := c.fetch(ctx, searchEndpoint(category.SearchQuery))
	if err != nil {
		return nil, err
	}
	return toVideoItems(items, categoryFeedSize), nil
}

func searchEndpoint(q string) string {
	return "/search?q=" + url.QueryEscape(q) + "&filter=videos"
}

// fetch decodes each mirror's reply into its own value, so a body cut off
// halfway never mixes into the next mirror's result.
func (c *PipedClient) fetch(ctx context.Context, endpoint string) ([]pipedItem, error) {
	for _, mirror := range c.mirrors {
		resp, err := c.try(ctx, mirror, endpoint)
		if err == nil {
			metrics.MirrorAttempts.WithLabelValues(mirror, "ok").Inc()
			return resp.Items, nil
		}
		metrics.MirrorAttempts.WithLabelValues(mirror, "failed").Inc()

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, ErrAllMirrorsFailed
}

func (c *PipedClient) try(ctx context.Context, mirror, endpoint string) (*pipedSearchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mirror+endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("mirror %s returned %d", mirror, resp.StatusCode)
	}
	var out pipedSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("mirror %s: %w", mirror, err)
	}
	return &out, nil
}

func toVideoItems(items []pipedItem, limit int) []models.VideoItem {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	videos := make([]models.VideoItem, 0, len(items))
	for _, it := range items {
		id := videoIDFromURL(it.URL)
		if id == "" {
			continue
		}
		videos = append(videos, models.VideoItem{
			ID:        id,
			Title:     it.Title,
			Thumbnail: it.Thumbnail,
			Channel:   it.UploaderName,
			Duration:  formatDuration(it.Duration),
		})
	}
	return videos
}

// videoIDFromURL takes the v= parameter of a "/watch?v=<id>" path.
func videoIDFromURL(u string) string {
	_, after, ok := strings.Cut(u, "v=")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(after, "&")
	return id
}

// formatDuration renders seconds as m:ss, or "Live" when not positive.
func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "Live"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
