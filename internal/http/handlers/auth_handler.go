// README: Session handlers: who am I, and logout for cookie sessions.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/middleware"
)

type AuthHandler struct {
	profiles   ProfileService
	cookieName string
}

func NewAuthHandler(profiles ProfileService, cookieName string) *AuthHandler {
	return &AuthHandler{profiles: profiles, cookieName: cookieName}
}

func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.profiles.Get(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toProfileResp(u))
}

// Logout expires the session cookie. Bearer tokens are stateless and unaffected.
func (h *AuthHandler) Logout(c *gin.Context) {
	if h.cookieName != "" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cookieName, "", -1, "/", "", c.Request.TLS != nil, true)
	}
	writeJSON(c, http.StatusOK, gin.H{"ok": true})
}
