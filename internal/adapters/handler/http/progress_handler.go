package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-programs/internal/core/services"
)

type ProgressHandler struct {
	svc *services.TrackerService
}

func NewProgressHandler(svc *services.TrackerService) *ProgressHandler {
	return &ProgressHandler{
		svc: svc,
	}
}

type toggleRequest struct {
	Program    string `json:"program" binding:"required"`
	Week       int    `json:"week" binding:"required,min=1"`
	HabitIndex *int   `json:"habit_index" binding:"required,min=0"`
	Checked    *bool  `json:"checked" binding:"required"`
}

func (h *ProgressHandler) RegisterRoutes(router *gin.RouterGroup, mutating ...gin.HandlerFunc) {
	router.GET("/programs", h.ListPrograms)
	router.GET("/programs/:program", h.GetProgram)
	router.GET("/achievements", h.ListAchievements)
	router.GET("/progress", h.GetProgress)

	toggle := append(append([]gin.HandlerFunc{}, mutating...), h.Toggle)
	router.POST("/habits/toggle", toggle...)
}

func (h *ProgressHandler) ListPrograms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"programs": h.svc.Catalog().Programs()})
}

func (h *ProgressHandler) GetProgram(c *gin.Context) {
	view, err := h.svc.Program(c.Request.Context(), c.Param("program"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ProgressHandler) ListAchievements(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"achievements": h.svc.Catalog().Achievements()})
}

func (h *ProgressHandler) GetProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Progress(c.Request.Context()))
}

func (h *ProgressHandler) Toggle(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	res, err := h.svc.Toggle(c.Request.Context(), services.ToggleInput{
		ProgramKey: req.Program,
		WeekNumber: req.Week,
		HabitIndex: *req.HabitIndex,
		Checked:    *req.Checked,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
