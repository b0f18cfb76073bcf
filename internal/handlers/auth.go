package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sdko-org/sim-fleet/internal/auth"
	"github.com/sdko-org/sim-fleet/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// HandleLogin exchanges admin credentials for a bearer token.
func (h *APIHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var user models.User
	err := h.db.WithContext(r.Context()).Where("email = ?", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !user.IsActive) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		h.log.WithField("email", req.Email).Warn("Failed login attempt")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Email, user.IsAdmin, []byte(h.cfg.JWTSecret), h.cfg.JWTExpiry)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.log.WithField("email", user.Email).Info("User logged in")
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer"})
}

// AuthMiddleware accepts either a bearer JWT or the configured API key.
func (h *APIHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" && h.cfg.AdminAPIKey != "" {
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(h.cfg.AdminAPIKey)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing credentials")
			return
		}

		if _, err := auth.ParseToken(strings.TrimPrefix(header, "Bearer "), []byte(h.cfg.JWTSecret)); err != nil {
			h.log.WithFields(logrus.Fields{
				"path":  r.URL.Path,
				"error": err,
			}).Warn("Rejected token")
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
