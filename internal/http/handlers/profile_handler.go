// README: Profile handlers: read the caller's profile and set the home location.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/middleware"
	"carpool/internal/modules/profile"
	"carpool/internal/types"
)

type ProfileService interface {
	Get(ctx context.Context, id types.ID) (*profile.UserLocation, error)
	UpdateHome(ctx context.Context, cmd profile.UpdateHomeCommand) (*profile.UserLocation, error)
}

type ProfileHandler struct {
	profiles ProfileService
}

func NewProfileHandler(svc ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: svc}
}

type profileResp struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	HomeAddress *string   `json:"home_address"`
	HomeLat     *float64  `json:"home_lat"`
	HomeLng     *float64  `json:"home_lng"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProfileResp(u *profile.UserLocation) profileResp {
	resp := profileResp{
		ID:          string(u.ID),
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		HomeAddress: u.HomeAddress,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if u.Home != nil {
		lat, lng := u.Home.Lat, u.Home.Lng
		resp.HomeLat, resp.HomeLng = &lat, &lng
	}
	return resp
}

func (h *ProfileHandler) Get(c *gin.Context) {
	u, err := h.profiles.Get(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toProfileResp(u))
}

type updateProfileReq struct {
	HomeAddress string   `json:"home_address"`
	HomeLat     *float64 `json:"home_lat"`
	HomeLng     *float64 `json:"home_lng"`
}

func (h *ProfileHandler) Update(c *gin.Context) {
	var req updateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	u, err := h.profiles.UpdateHome(c.Request.Context(), profile.UpdateHomeCommand{
		UserID:  middleware.CallerUID(c),
		Address: req.HomeAddress,
		Lat:     req.HomeLat,
		Lng:     req.HomeLng,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toProfileResp(u))
}
