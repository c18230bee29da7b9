package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PublicConfig is what the browser client needs before login.
type PublicConfig struct {
	MapsAPIKey       string `json:"mapsApiKey"`
	WorkplaceName    string `json:"workplaceName"`
	WorkplaceAddress string `json:"workplaceAddress"`
}

type ConfigHandler struct {
	cfg PublicConfig
}

func NewConfigHandler(cfg PublicConfig) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

func (h *ConfigHandler) Get(c *gin.Context) {
	writeJSON(c, http.StatusOK, h.cfg)
}
