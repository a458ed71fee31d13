package handler

import (
	"net/http"
	"time"

	"ochre-shop/internal/middleware"
	"ochre-shop/internal/model"
	"ochre-shop/internal/service"

	"github.com/rs/zerolog"
)

// AuthHandler handles sign-up and sign-in.
type AuthHandler struct {
	service      service.AuthService
	tokenTTL     time.Duration
	secureCookie bool
	logger       zerolog.Logger
}

// NewAuthHandler creates a new auth handler. tokenTTL sets the lifetime of
// the token cookie.
func NewAuthHandler(service service.AuthService, tokenTTL time.Duration, secureCookie bool, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:      service,
		tokenTTL:     tokenTTL,
		secureCookie: secureCookie,
		logger:       logger.With().Str("handler", "auth").Logger(),
	}
}

// Register handles POST /auth/register/.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	vals, err := readValues(w, r)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	resp, err := h.service.Register(r.Context(), &model.RegisterRequest{
		Email:    vals.Get("email"),
		Name:     vals.Get("name"),
		Phone:    vals.Get("phone"),
		Password: vals.Get("password"),
	}, middleware.SessionID(r.Context()))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	h.setTokenCookie(w, resp.Token)
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login/. The visitor's session cart is merged
// into the account as part of the login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	vals, err := readValues(w, r)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	resp, err := h.service.Login(r.Context(), &model.LoginRequest{
		Email:    vals.Get("email"),
		Password: vals.Get("password"),
	}, middleware.SessionID(r.Context()))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	h.setTokenCookie(w, resp.Token)
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
