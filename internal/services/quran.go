package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"sciencebindu-backend/internal/models"
)

const (
	surahCount        = 114
	quranEditions     = "quran-uthmani,bn.bengali"
	msgQuranLoadError = "ডাটা লোড করতে সমস্যা হয়েছে।"
)

var ErrQuranUnavailable = errors.New("quran api unavailable")

const infographicSchemaJSON = `{
  "type": "object",
  "required": ["summary", "stats", "lessons", "virtues"],
  "properties": {
    "summary": {"type": "string", "minLength": 1},
    "stats": {
      "type": "object",
      "required": ["commands", "prohibitions"],
      "properties": {
        "commands": {"type": "integer", "minimum": 0},
        "prohibitions": {"type": "integer", "minimum": 0}
      }
    },
    "lessons": {"type": "array", "items": {"type": "string"}},
    "virtues": {"type": "string"}
  }
}`

var infographicSchema = mustSchema(infographicSchemaJSON)

type jsonGenerator interface {
	textGenerator
	GenerateJSON(ctx context.Context, req GenerateRequest, schema *gojsonschema.Schema, out interface{}) error
}

// QuranService proxies alquran.cloud and runs the Surah AI tools.
type QuranService struct {
	baseURL    string
	httpClient *http.Client
	cache      jsonCache
	gemini     jsonGenerator
}

func NewQuranService(baseURL string, cache jsonCache, gemini jsonGenerator) *QuranService {
	return &QuranService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cache,
		gemini:     gemini,
	}
}

type quranEditionsResponse struct {
	Code int `json:"code"`
	Data []struct {
		Number                 int           `json:"number"`
		Name                   string        `json:"name"`
		EnglishName            string        `json:"englishName"`
		EnglishNameTranslation string        `json:"englishNameTranslation"`
		RevelationType         string        `json:"revelationType"`
		NumberOfAyahs          int           `json:"numberOfAyahs"`
		Ayahs                  []models.Ayah `json:"ayahs"`
	} `json:"data"`
}

// Surah returns the Arabic text and Bengali translation of Surah n.
func (s *QuranService) Surah(ctx context.Context, n int) (*models.Surah, error) {
	if n < 1 || n > surahCount {
		return nil, &ValidationError{Fields: map[string]string{"number": fmt.Sprintf("must be between 1 and %d", surahCount)}}
	}

	var surah models.Surah
	err := s.cache.GetOrLoad(ctx, fmt.Sprint(n), &surah, func(ctx context.Context) (interface{}, error) {
		return s.fetchSurah(ctx, n)
	})
	if err != nil {
		return nil, err
	}
	return &surah, nil
}

func (s *QuranService) fetchSurah(ctx context.Context, n int) (*models.Surah, error) {
	endpoint := fmt.Sprintf("%s/surah/%d/editions/%s", s.baseURL, n, quranEditions)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuranUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrQuranUnavailable, resp.StatusCode)
	}

	var body quranEditionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuranUnavailable, err)
	}
	if len(body.Data) < 2 {
		return nil, fmt.Errorf("%w: expected 2 editions, got %d", ErrQuranUnavailable, len(body.Data))
	}

	arabic, bengali := body.Data[0], body.Data[1]
	return &models.Surah{
		Number:                 arabic.Number,
		Name:                   arabic.Name,
		EnglishName:            arabic.EnglishName,
		EnglishNameTranslation: arabic.EnglishNameTranslation,
		RevelationType:         arabic.RevelationType,
		NumberOfAyahs:          arabic.NumberOfAyahs,
		Arabic:                 arabic.Ayahs,
		Bengali:                bengali.Ayahs,
	}, nil
}

func (s *QuranService) Infographic(ctx context.Context, n int) (*models.SurahInfographic, error) {
	surah, err := s.Surah(ctx, n)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Analyze Surah %s (ID: %d) and provide a structured JSON in Bengali:
{
  "summary": "Core theme",
  "stats": {"commands": 5, "prohibitions": 3},
  "lessons": ["point 1", "point 2"],
  "virtues": "Special value"
}`, surah.EnglishName, surah.Number)

	var out models.SurahInfographic
	if err := s.gemini.GenerateJSON(ctx, GenerateRequest{Prompt: prompt, JSON: true}, infographicSchema, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask answers a single question about Surah n in Bengali.
func (s *QuranService) Ask(ctx context.Context, n int, question string) (*models.SurahAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &ValidationError{Fields: map[string]string{"question": "question is required"}}
	}
	surah, err := s.Surah(ctx, n)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Context: Surah %s.
Instructions: Answer the question in Bengali.
Use bullet points (•) for key facts.
DO NOT write long paragraphs.
Keep it respectful.
Question: %s`, surah.EnglishName, question)

	text, err := s.gemini.Generate(ctx, GenerateRequest{Prompt: prompt})
	if err != nil {
		return nil, err
	}
	return &models.SurahAnswer{Surah: surah.Number, Question: question, Answer: strings.TrimSpace(text)}, nil
}
