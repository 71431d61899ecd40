package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"sciencebindu-backend/internal/models"
	"sciencebindu-backend/internal/services"
)

type videoService interface {
	Categories() []models.VideoCategory
	Search(ctx context.Context, q string) ([]models.VideoItem, error)
	Category(ctx context.Context, id string) ([]models.VideoItem, error)
	Details(ctx context.Context, id string) (*models.VideoDetails, error)
	Summary(ctx context.Context, id string) (*services.VideoSummary, error)
}

type quranService interface {
	Surah(ctx context.Context, n int) (*models.Surah, error)
	Infographic(ctx context.Context, n int) (*models.SurahInfographic, error)
	Ask(ctx context.Context, n int, question string) (*models.SurahAnswer, error)
}

type VideoHandler struct {
	videos videoService
}

func NewVideoHandler(videos videoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

func (h *VideoHandler) Search(w http.ResponseWriter, r *http.Request) {
	items, err := h.videos.Search(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *VideoHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": h.videos.Categories()})
}

func (h *VideoHandler) Category(w http.ResponseWriter, r *http.Request) {
	items, err := h.videos.Category(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *VideoHandler) Details(w http.ResponseWriter, r *http.Request) {
	details, err := h.videos.Details(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *VideoHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.videos.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type QuranHandler struct {
	quran quranService
}

func NewQuranHandler(quran quranService) *QuranHandler {
	return &QuranHandler{quran: quran}
}

func (h *QuranHandler) Surah(w http.ResponseWriter, r *http.Request) {
	n, ok := surahParam(w, r)
	if !ok {
		return
	}

	surah, err := h.quran.Surah(r.Context(), n)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, surah)
}

func (h *QuranHandler) Infographic(w http.ResponseWriter, r *http.Request) {
	n, ok := surahParam(w, r)
	if !ok {
		return
	}

	info, err := h.quran.Infographic(r.Context(), n)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *QuranHandler) Ask(w http.ResponseWriter, r *http.Request) {
	n, ok := surahParam(w, r)
	if !ok {
		return
	}

	var req models.AskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	answer, err := h.quran.Ask(r.Context(), n, req.Question)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func surahParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid surah number", r))
		return 0, false
	}
	return n, true
}
