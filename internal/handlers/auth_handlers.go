package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"winery_backend/internal/models"
	"winery_backend/internal/services"
	"winery_backend/pkg/utils"
)

// AuthHandler handles login, logout and self-service account endpoints.
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as services.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

// Login exchanges credentials for a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var creds models.Credentials
	if !bindJSON(c, &creds, "Login") {
		return
	}
	_, resp, err := h.authService.Authenticate(c.Request.Context(), creds)
	if err != nil {
		respondServiceError(c, err, "Login: authentication failed for "+creds.Username, "Failed to log in.")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout revokes the current token.
func (h *AuthHandler) Logout(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	if err := h.authService.Logout(c.Request.Context(), session); err != nil {
		respondServiceError(c, err, "Logout: revoking session", "Failed to log out.")
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the caller's account.
func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	account, err := h.authService.Me(c.Request.Context(), session)
	if err != nil {
		respondServiceError(c, err, "Me: loading account "+utils.Int64ToStr(session.AccountID), "Failed to load account.")
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req services.ChangePasswordRequest
	if !bindJSON(c, &req, "ChangePassword") {
		return
	}
	if err := h.authService.ChangePassword(c.Request.Context(), session, req); err != nil {
		respondServiceError(c, err, "ChangePassword: account "+utils.Int64ToStr(session.AccountID), "Failed to change password.")
		return
	}
	c.Status(http.StatusNoContent)
}
