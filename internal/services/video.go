package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"sciencebindu-backend/internal/catalog"
	"sciencebindu-backend/internal/models"
)

const maxTranscriptRunes = 15000

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

type videoSearcher interface {
	Search(ctx context.Context, q string) ([]models.VideoItem, error)
	CategoryFeed(ctx context.Context, category models.VideoCategory) ([]models.VideoItem, error)
}

type videoSource interface {
	Details(ctx context.Context, videoID string) (*models.VideoDetails, error)
	Transcript(videoID string) (string, error)
}

type jsonCache interface {
	GetOrLoad(ctx context.Context, key string, out interface{}, load func(ctx context.Context) (interface{}, error)) error
}

type VideoSummary struct {
	VideoID string `json:"video_id"`
	Summary string `json:"summary"`
}

// VideoService backs the nasheed/video browser.
type VideoService struct {
	search  videoSearcher
	source  videoSource
	gemini  textGenerator
	catalog *catalog.Catalog
	cache   jsonCache
}

func NewVideoService(search videoSearcher, source videoSource, gemini textGenerator, cat *catalog.Catalog, cache jsonCache) *VideoService {
	return &VideoService{search: search, source: source, gemini: gemini, catalog: cat, cache: cache}
}

func (s *VideoService) Categories() []models.VideoCategory {
	return s.catalog.VideoCategories()
}

func (s *VideoService) Search(ctx context.Context, q string) ([]models.VideoItem, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, &ValidationError{Fields: map[string]string{"q": "search query is required"}}
	}
	return s.search.Search(ctx, q)
}

func (s *VideoService) Category(ctx context.Context, id string) ([]models.VideoItem, error) {
	category, ok := s.catalog.VideoCategory(id)
	if !ok {
		return nil, &NotFoundError{Message: "Video category not found"}
	}
	return s.search.CategoryFeed(ctx, *category)
}

func (s *VideoService) Details(ctx context.Context, id string) (*models.VideoDetails, error) {
	if !videoIDPattern.MatchString(id) {
		return nil, &ValidationError{Fields: map[string]string{"id": "invalid video id"}}
	}
	return s.source.Details(ctx, id)
}

// Summary summarises a video's captions in Bengali. Summaries are cached per video.
func (s *VideoService) Summary(ctx context.Context, id string) (*VideoSummary, error) {
	if !videoIDPattern.MatchString(id) {
		return nil, &ValidationError{Fields: map[string]string{"id": "invalid video id"}}
	}

	var out VideoSummary
	err := s.cache.GetOrLoad(ctx, id, &out, func(ctx context.Context) (interface{}, error) {
		transcript, err := s.source.Transcript(id)
		if err != nil {
			return nil, &NotFoundError{Message: "এই ভিডিওর কোনো সাবটাইটেল পাওয়া যায়নি।"}
		}
		if r := []rune(transcript); len(r) > maxTranscriptRunes {
			transcript = string(r[:maxTranscriptRunes])
		}

		text, err := s.gemini.Generate(ctx, GenerateRequest{
			Prompt: fmt.Sprintf("Summarize this video transcript in Bengali in 5-7 bullet points (•). Keep Islamic terms accurate.\n\nTranscript:\n%s", transcript),
		})
		if err != nil {
			return nil, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, &AIError{Kind: ErrAIMalformed, Message: msgAIMalformed}
		}
		return VideoSummary{VideoID: id, Summary: text}, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
