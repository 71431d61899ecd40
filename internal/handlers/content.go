package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sciencebindu-backend/internal/models"
	"sciencebindu-backend/internal/services"
)

type catalogReader interface {
	Classes() []models.AcademicClass
	Categories() []models.QuizCategory
	Posts() []models.BlogPost
	Post(id int) (*models.BlogPost, bool)
	QuranicElements() []models.QuranicElement
	SalahBenefits() []models.SalahBenefit
	Roadmap() (*models.Roadmap, bool)
}

// ContentHandler serves the bundled static datasets.
type ContentHandler struct {
	catalog catalogReader
}

func NewContentHandler(catalog catalogReader) *ContentHandler {
	return &ContentHandler{catalog: catalog}
}

func (h *ContentHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"posts": h.catalog.Posts()})
}

func (h *ContentHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid post ID", r))
		return
	}

	post, ok := h.catalog.Post(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Blog post not found", r))
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *ContentHandler) Classes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"classes": h.catalog.Classes()})
}

func (h *ContentHandler) QuizCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": h.catalog.Categories()})
}

func (h *ContentHandler) Roadmap(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.catalog.Roadmap()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Roadmap not available", r))
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (h *ContentHandler) QuranicElements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"elements": h.catalog.QuranicElements()})
}

func (h *ContentHandler) SalahBenefits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"benefits": h.catalog.SalahBenefits()})
}

// Tasbeeh converts the elapsed seconds of a counting session into the cosmic
// figures shown beside the counter.
func (h *ContentHandler) Tasbeeh(w http.ResponseWriter, r *http.Request) {
	seconds, err := strconv.Atoi(r.URL.Query().Get("seconds"))
	if err != nil || seconds < 0 || seconds > services.MaxTasbeehSeconds {
		fields := map[string]string{
			"seconds": fmt.Sprintf("Must be a whole number between 0 and %d", services.MaxTasbeehSeconds),
		}
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}
	writeJSON(w, http.StatusOK, services.CosmicTasbeeh(seconds))
}
