package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"sciencebindu-backend/internal/middleware"
	"sciencebindu-backend/internal/models"
	"sciencebindu-backend/internal/services"
	"sciencebindu-backend/internal/validation"
)

const msgLoadFailed = "ডাটা লোড করতে সমস্যা হয়েছে।"

type authService interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthTokens, error)
	SignIn(ctx context.Context, req models.SignInRequest) (*models.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error)
	SignOut(ctx context.Context, userID uuid.UUID, refreshToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, password string) error
}

type AuthHandler struct {
	authService authService
}

func NewAuthHandler(authService authService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tokens, err := h.authService.SignUp(r.Context(), req)
	if err != nil {
		var conflict *services.ConflictError
		if errors.As(err, &conflict) {
			handleServiceError(w, r, err)
			return
		}
		log.Printf("✗ Sign-up failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("SIGNUP_FAILED", services.SignUpFailureMessage(err), r))
		return
	}

	writeJSON(w, http.StatusCreated, tokens)
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tokens, err := h.authService.SignIn(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

// SignOut accepts an empty body; without a refresh token only the session event is sent.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
			return
		}
	}

	if err := h.authService.SignOut(r.Context(), middleware.GetUserID(r.Context()), req.RefreshToken); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "If the address is registered, a reset link is on its way.",
	})
}

func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetConfirm
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.authService.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func requestID(r *http.Request) string {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: requestID(r),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: requestID(r),
		},
	}
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the 400 response itself and reports whether the handler may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return false
	}
	if fields := validation.Struct(dst); fields != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return false
	}
	return true
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *services.ValidationError
		conflictErr   *services.ConflictError
		notFoundErr   *services.NotFoundError
		unauthErr     *services.UnauthorizedError
		forbiddenErr  *services.ForbiddenError
		rateErr       *services.RateLimitError
		aiErr         *services.AIError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validationErr.Fields, r))
	case errors.As(err, &conflictErr):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", conflictErr.Message, r))
	case errors.As(err, &notFoundErr):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFoundErr.Message, r))
	case errors.As(err, &unauthErr):
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", unauthErr.Message, r))
	case errors.As(err, &forbiddenErr):
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", forbiddenErr.Message, r))
	case errors.As(err, &rateErr):
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", rateErr.Message, r))
	case errors.As(err, &aiErr):
		writeAIError(w, r, aiErr)
	case errors.Is(err, services.ErrAllMirrorsFailed):
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_UNAVAILABLE", err.Error(), r))
	case errors.Is(err, services.ErrQuranUnavailable):
		writeJSON(w, http.StatusBadGateway, errorResp("UPSTREAM_UNAVAILABLE", msgLoadFailed, r))
	default:
		log.Printf("✗ %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

func writeAIError(w http.ResponseWriter, r *http.Request, aiErr *services.AIError) {
	status, code := http.StatusBadGateway, "AI_FAILED"
	switch {
	case errors.Is(aiErr, services.ErrAIKeyMissing):
		status, code = http.StatusServiceUnavailable, "AI_UNAVAILABLE"
	case errors.Is(aiErr, services.ErrAIBusy):
		status, code = http.StatusTooManyRequests, "AI_BUSY"
	case errors.Is(aiErr, services.ErrAIMalformed):
		code = "AI_MALFORMED"
	}
	writeJSON(w, status, errorResp(code, aiErr.Message, r))
}
