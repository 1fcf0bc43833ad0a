// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/linksnip/linksnip/internal/model"
)

// SignupRequest represents the request body for creating an account.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest represents the request body for a reset request.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the request body for consuming a reset token.
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// ShortenRequest represents the request body for creating a short link.
type ShortenRequest struct {
	OriginalURL string `json:"originalUrl"`
}

// MessageResponse is the generic success envelope.
type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse represents an operational error body.
// Status is "fail" for 4xx responses and "error" for everything else.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// LoginResponse carries a fresh session token and the stripped user.
type LoginResponse struct {
	Status string    `json:"status"`
	Token  string    `json:"token"`
	Data   LoginData `json:"data"`
}

// LoginData wraps the user in the login envelope.
type LoginData struct {
	User model.PublicUser `json:"user"`
}

// UserResponse wraps a stripped user in the success envelope.
type UserResponse struct {
	Status string           `json:"status"`
	User   model.PublicUser `json:"user"`
}

// LinkResponse represents a link in API responses.
// The owner id is deliberately absent from listings.
type LinkResponse struct {
	ID          string    `json:"id"`
	ShortID     string    `json:"short_id"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	VisitCount  int64     `json:"visit_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// LinkEnvelope wraps a single link in the success envelope.
type LinkEnvelope struct {
	Status string   `json:"status"`
	Data   LinkData `json:"data"`
}

// LinkData carries one created link.
type LinkData struct {
	URL LinkResponse `json:"url"`
}

// LinkListEnvelope wraps a listing in the success envelope.
type LinkListEnvelope struct {
	Status string       `json:"status"`
	Data   LinkListData `json:"data"`
}

// LinkListData carries the caller's links.
type LinkListData struct {
	URLs []LinkResponse `json:"urls"`
}

// ToLinkResponse converts a Link model to LinkResponse DTO.
func ToLinkResponse(link *model.Link, baseURL string) LinkResponse {
	return LinkResponse{
		ID:          link.ID,
		ShortID:     link.ShortID,
		ShortURL:    baseURL + "/" + link.ShortID,
		OriginalURL: link.OriginalURL,
		VisitCount:  link.VisitCount,
		CreatedAt:   link.CreatedAt,
	}
}

// ToLinkListEnvelope converts a slice of Link models to a listing envelope.
func ToLinkListEnvelope(links []*model.Link, baseURL string) LinkListEnvelope {
	urls := make([]LinkResponse, len(links))
	for i, link := range links {
		urls[i] = ToLinkResponse(link, baseURL)
	}
	return LinkListEnvelope{
		Status: "success",
		Data:   LinkListData{URLs: urls},
	}
}
