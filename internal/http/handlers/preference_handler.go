// README: Preference handlers: list, upsert by direction, delete by direction.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/http/middleware"
	"carpool/internal/modules/preference"
	"carpool/internal/types"
)

type PreferenceService interface {
	List(ctx context.Context, userID types.ID) ([]preference.CommutePreference, error)
	Upsert(ctx context.Context, cmd preference.UpsertCommand) ([]preference.CommutePreference, error)
	Delete(ctx context.Context, userID types.ID, d preference.Direction) error
}

type PreferenceHandler struct {
	prefs PreferenceService
}

func NewPreferenceHandler(svc PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefs: svc}
}

// preferenceDTO is the wire form: clock strings and 0=Mon..4=Fri day indexes.
type preferenceDTO struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Direction    string `json:"direction"`
	EarliestTime string `json:"earliest_time"`
	LatestTime   string `json:"latest_time"`
	DaysOfWeek   []int  `json:"days_of_week"`
	Role         string `json:"role"`
}

func toPreferenceDTOs(prefs []preference.CommutePreference) []preferenceDTO {
	out := make([]preferenceDTO, len(prefs))
	for i, p := range prefs {
		days := make([]int, len(p.Days))
		for j, d := range p.Days {
			days[j] = int(d)
		}
		out[i] = preferenceDTO{
			ID:           string(p.ID),
			UserID:       string(p.UserID),
			Direction:    string(p.Direction),
			EarliestTime: preference.FormatClock(p.EarliestMin),
			LatestTime:   preference.FormatClock(p.LatestMin),
			DaysOfWeek:   days,
			Role:         string(p.Role),
		}
	}
	return out
}

func (h *PreferenceHandler) List(c *gin.Context) {
	prefs, err := h.prefs.List(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toPreferenceDTOs(prefs))
}

type upsertPreferenceReq struct {
	Direction    string `json:"direction"`
	EarliestTime string `json:"earliest_time"`
	LatestTime   string `json:"latest_time"`
	DaysOfWeek   []int  `json:"days_of_week"`
	Role         string `json:"role"`
}

func (h *PreferenceHandler) Upsert(c *gin.Context) {
	var req upsertPreferenceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Direction == "" || req.EarliestTime == "" || req.LatestTime == "" || req.DaysOfWeek == nil || req.Role == "" {
		writeError(c, http.StatusBadRequest, "missing required fields")
		return
	}
	days := make([]preference.Weekday, len(req.DaysOfWeek))
	for i, d := range req.DaysOfWeek {
		days[i] = preference.Weekday(d)
	}
	prefs, err := h.prefs.Upsert(c.Request.Context(), preference.UpsertCommand{
		UserID:    middleware.CallerUID(c),
		Direction: preference.Direction(req.Direction),
		Earliest:  req.EarliestTime,
		Latest:    req.LatestTime,
		Days:      days,
		Role:      preference.Role(req.Role),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toPreferenceDTOs(prefs))
}

func (h *PreferenceHandler) Delete(c *gin.Context) {
	dir := preference.Direction(c.Param("direction"))
	if err := h.prefs.Delete(c.Request.Context(), middleware.CallerUID(c), dir); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"ok": true})
}
