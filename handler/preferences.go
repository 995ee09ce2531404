package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janpow77/flowinvoice-sub001/middleware"
	"github.com/janpow77/flowinvoice-sub001/service"
)

type PreferenceHandler struct {
	prefs *service.PreferenceStore
}

func NewPreferenceHandler(prefs *service.PreferenceStore) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

type themeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

// splitRequest moves or toggles the document/result split view
type splitRequest struct {
	Action         string  `json:"action" binding:"required,oneof=set drag toggle_left toggle_right"`
	LeftWidth      float64 `json:"left_width"`
	Offset         float64 `json:"offset"`
	ContainerWidth float64 `json:"container_width"`
}

func (h *PreferenceHandler) Get(c *gin.Context) {
	prefs, err := h.prefs.Get(c.Request.Context(), middleware.GetUsername(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h *PreferenceHandler) SetTheme(c *gin.Context) {
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	prefs, err := h.prefs.Update(c.Request.Context(), middleware.GetUsername(c), func(p *service.Preferences) error {
		p.Theme = req.Theme
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (h *PreferenceHandler) UpdateSplit(c *gin.Context) {
	var req splitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	prefs, err := h.prefs.Update(c.Request.Context(), middleware.GetUsername(c), func(p *service.Preferences) error {
		switch req.Action {
		case "set":
			p.Split.SetLeftWidth(req.LeftWidth)
		case "drag":
			p.Split.DragTo(req.Offset, req.ContainerWidth)
		case "toggle_left":
			p.Split.ToggleLeft()
		case "toggle_right":
			p.Split.ToggleRight()
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	left, right := prefs.Split.Widths()
	c.JSON(http.StatusOK, gin.H{
		"split":       prefs.Split,
		"left_width":  left,
		"right_width": right,
	})
}
