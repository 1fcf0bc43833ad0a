package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linksnip/linksnip/internal/handler/dto"
	"github.com/linksnip/linksnip/internal/service"
)

// AccountHandler handles HTTP requests for the credential lifecycle.
type AccountHandler struct {
	svc    *service.AccountService
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		svc:    svc,
		logger: logger,
	}
}

// Signup handles POST /api/v1/users/signup.
func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	input := service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}

	if err := h.svc.Signup(r.Context(), input); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("signup_accepted", "email", req.Email)

	writeJSON(w, http.StatusOK, dto.MessageResponse{
		Status:  "success",
		Message: "An Email sent to your account please verify",
	})
}

// VerifyAccount handles GET /api/v1/users/verify-account/{token}.
// On success the browser is sent to the frontend with a fresh session
// token; a repeat visit lands on the already-verified page instead.
func (h *AccountHandler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	rawToken := chi.URLParam(r, "token")

	result, err := h.svc.VerifyAccount(r.Context(), rawToken)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if result.AlreadyVerified {
		http.Redirect(w, r, h.svc.FrontendURL()+"/alreadyVerified", http.StatusMovedPermanently)
		return
	}

	http.Redirect(w, r, h.svc.FrontendURL()+"/verify-account/"+result.SessionToken, http.StatusMovedPermanently)
}

// Login handles POST /api/v1/users/login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("login_success", "user_id", result.User.ID)

	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Status: "success",
		Token:  result.Token,
		Data:   dto.LoginData{User: result.User},
	})
}

// ForgotPassword handles POST /api/v1/users/forgotPassword.
func (h *AccountHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{
		Status:  "success",
		Message: "Token sent to email!",
	})
}

// ResetPassword handles PATCH /api/v1/users/resetPassword/{token}.
func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	rawToken := chi.URLParam(r, "token")

	var req dto.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.svc.ResetPassword(r.Context(), rawToken, req.Password)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("password_reset", "user_id", user.ID)

	writeJSON(w, http.StatusOK, dto.UserResponse{
		Status: "success",
		User:   *user,
	})
}

// handleServiceError maps account service errors to HTTP responses.
func (h *AccountHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "All fields are required")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "User with the email already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrNotVerified):
		writeError(w, http.StatusUnauthorized, "Please verify your account before logging in")
	case errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "Token is invalid or has expired")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "No user found with that email address")
	case errors.Is(err, service.ErrEmailDelivery):
		h.logger.Error("email_delivery_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "There was a problem sending the email. Please try again later")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}
