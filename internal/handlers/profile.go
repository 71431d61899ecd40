package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sciencebindu-backend/internal/middleware"
	"sciencebindu-backend/internal/models"
	"sciencebindu-backend/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type profileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	Update(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.Profile, error)
	ToggleBookmark(ctx context.Context, userID uuid.UUID, postID int) (bool, error)
	SubmitInquiry(ctx context.Context, userID *uuid.UUID, req models.CreateInquiryRequest) (*models.Inquiry, error)
	QuizResults(ctx context.Context, userID uuid.UUID) ([]models.QuizResult, error)
	ExportQuizResults(ctx context.Context, userID uuid.UUID) ([]byte, error)
}

type ProfileHandler struct {
	profiles profileService
}

func NewProfileHandler(profiles profileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		var notFound *services.NotFoundError
		if errors.As(err, &notFound) {
			handleServiceError(w, r, err)
			return
		}
		log.Printf("✗ Profile load failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("LOAD_FAILED", msgLoadFailed, r))
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.profiles.Update(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) QuizResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.profiles.QuizResults(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (h *ProfileHandler) ExportQuizResults(w http.ResponseWriter, r *http.Request) {
	data, err := h.profiles.ExportQuizResults(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="quiz-results.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *ProfileHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.Atoi(chi.URLParam(r, "postID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid post ID", r))
		return
	}

	bookmarked, err := h.profiles.ToggleBookmark(r.Context(), middleware.GetUserID(r.Context()), postID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"post_id":    postID,
		"bookmarked": bookmarked,
	})
}

// SubmitInquiry runs behind optional auth; signed-in senders are linked to their account.
func (h *ProfileHandler) SubmitInquiry(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInquiryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var userID *uuid.UUID
	if id := middleware.GetUserID(r.Context()); id != uuid.Nil {
		userID = &id
	}

	inquiry, err := h.profiles.SubmitInquiry(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inquiry)
}
