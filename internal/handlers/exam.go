package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"sciencebindu-backend/internal/assessment"
	"sciencebindu-backend/internal/middleware"
	"sciencebindu-backend/internal/models"
	"sciencebindu-backend/internal/validation"
)

const maxNotesUploadBytes = 10 << 20

type examService interface {
	Current(ctx context.Context, userID uuid.UUID) (*assessment.Exam, error)
	SelectScope(ctx context.Context, userID uuid.UUID, req models.ExamScopeRequest, notes string) (*assessment.Exam, error)
	Start(ctx context.Context, userID uuid.UUID) (*assessment.Exam, error)
	Select(ctx context.Context, userID uuid.UUID, option int) (*assessment.Exam, error)
	Next(ctx context.Context, userID uuid.UUID) (*assessment.Exam, error)
	Retry(ctx context.Context, userID uuid.UUID) (*assessment.Exam, error)
	Exit(ctx context.Context, userID uuid.UUID) error
}

type notesExtractor interface {
	ExtractNotes(filename string, data []byte) (string, error)
}

type ExamHandler struct {
	exams examService
	notes notesExtractor
}

func NewExamHandler(exams examService, notes notesExtractor) *ExamHandler {
	return &ExamHandler{exams: exams, notes: notes}
}

func (h *ExamHandler) Current(w http.ResponseWriter, r *http.Request) {
	exam, err := h.exams.Current(r.Context(), middleware.GetUserID(r.Context()))
	h.respond(w, r, exam, err)
}

func (h *ExamHandler) SelectScope(w http.ResponseWriter, r *http.Request) {
	var req models.ExamScopeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	exam, err := h.exams.SelectScope(r.Context(), middleware.GetUserID(r.Context()), req, "")
	h.respond(w, r, exam, err)
}

// UploadScope selects a chapter scope with the learner's own notes as the
// source for generated suggestions. The multipart form carries the scope
// fields and a "file" part (.pdf, .docx or .txt).
func (h *ExamHandler) UploadScope(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxNotesUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 10MB limit", r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxNotesUploadBytes)

	if err := r.ParseMultipartForm(maxNotesUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
		return
	}

	req := models.ExamScopeRequest{
		Kind:      assessment.ScopeChapter,
		ClassID:   r.FormValue("class_id"),
		SubjectID: r.FormValue("subject_id"),
		ChapterID: r.FormValue("chapter_id"),
	}
	if fields := validation.Struct(&req); fields != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to read file", r))
		return
	}

	notes, err := h.notes.ExtractNotes(header.Filename, data)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResp("UNSUPPORTED_FORMAT", err.Error(), r))
		return
	}

	exam, err := h.exams.SelectScope(r.Context(), middleware.GetUserID(r.Context()), req, notes)
	h.respond(w, r, exam, err)
}

func (h *ExamHandler) Start(w http.ResponseWriter, r *http.Request) {
	exam, err := h.exams.Start(r.Context(), middleware.GetUserID(r.Context()))
	h.respond(w, r, exam, err)
}

func (h *ExamHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req models.SelectOptionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	exam, err := h.exams.Select(r.Context(), middleware.GetUserID(r.Context()), req.Option)
	h.respond(w, r, exam, err)
}

func (h *ExamHandler) Next(w http.ResponseWriter, r *http.Request) {
	exam, err := h.exams.Next(r.Context(), middleware.GetUserID(r.Context()))
	h.respond(w, r, exam, err)
}

func (h *ExamHandler) Retry(w http.ResponseWriter, r *http.Request) {
	exam, err := h.exams.Retry(r.Context(), middleware.GetUserID(r.Context()))
	h.respond(w, r, exam, err)
}

func (h *ExamHandler) Exit(w http.ResponseWriter, r *http.Request) {
	if err := h.exams.Exit(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ExamHandler) respond(w http.ResponseWriter, r *http.Request, exam *assessment.Exam, err error) {
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam.View())
}
