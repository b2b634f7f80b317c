package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/xelth-com/watibridge/internal/models"
	"github.com/xelth-com/watibridge/internal/utils"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login handles administrator login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if err := json.NewDecoder(req.Body).Decode(&loginReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	// 1. Find User
	var user models.UserAuth
	email := strings.ToLower(strings.TrimSpace(loginReq.Email))
	if err := r.db.WithContext(req.Context()).Where("email = ? AND is_active = ?", email, true).First(&user).Error; err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// 2. Check Password
	if !utils.CheckPasswordHash(loginReq.Password, user.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// 3. Update Last Login
	now := time.Now()
	user.LastLogin = &now
	r.db.WithContext(req.Context()).Model(&user).Update("last_login", now)

	// 4. Generate Tokens
	r.respondTokens(w, &user)
}

// refresh exchanges a refresh token for a new token pair
func (r *Router) refresh(w http.ResponseWriter, req *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	claims, err := utils.ValidateToken(body.RefreshToken, r.cfg.JWTSecret)
	if err != nil || claims["type"] != "refresh" {
		respondError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	var user models.UserAuth
	if err := r.db.WithContext(req.Context()).Where("id = ? AND is_active = ?", claims["id"], true).First(&user).Error; err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	r.respondTokens(w, &user)
}

func (r *Router) respondTokens(w http.ResponseWriter, user *models.UserAuth) {
	accessToken, refreshToken, err := utils.GenerateTokens(user, r.cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": map[string]string{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
		"user": user,
	})
}
