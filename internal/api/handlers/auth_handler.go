package handlers

import (
	"net/http"
	"strings"

	"github.com/rudzz/marketplace/internal/api/middleware"
	"github.com/rudzz/marketplace/internal/application/services"
	"github.com/rudzz/marketplace/internal/domain/entities"
)

// AuthHandler handles registration, login and token refresh
type AuthHandler struct {
	service *services.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

type registerRequest struct {
	Email     string `json:"email" validate:"max=255"`
	Phone     string `json:"phone" validate:"max=32"`
	Password  string `json:"password" validate:"required,max=128"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Role      string `json:"role" validate:"max=20"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required_without=Phone,max=255"`
	Phone    string `json:"phone" validate:"max=32"`
	Password string `json:"password" validate:"required,max=128"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type authResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	User         *entities.User `json:"user"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Register(r.Context(), services.RegisterInput{
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, toAuthResponse(result))
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), services.LoginInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, toAuthResponse(result))
}

// Refresh handles POST /api/auth/refresh. The refresh token is read from the
// bearer header, or from the body when no header is sent.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" && r.ContentLength != 0 {
		var req refreshRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		respondWithError(w, http.StatusUnauthorized, "refresh token required")
		return
	}

	access, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"access_token": access,
		"token_type":   "Bearer",
	})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	user, err := h.service.Me(r.Context(), actor)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}

func toAuthResponse(result *services.AuthResult) authResponse {
	return authResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    "Bearer",
		User:         result.User,
	}
}
