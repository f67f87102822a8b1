package handler

import (
	"net/http"

	"coursenotify/internal/middleware"
	"coursenotify/internal/service"

	"github.com/gin-gonic/gin"
)

type PreferenceHandler struct {
	views   *service.AggregationService
	patches *service.PatchService
}

func NewPreferenceHandler(views *service.AggregationService, patches *service.PatchService) *PreferenceHandler {
	return &PreferenceHandler{views: views, patches: patches}
}

// Enrollments lists the courses the user has active preferences in.
func (h *PreferenceHandler) Enrollments(c *gin.Context) {
	list, err := h.views.Enrollments(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           "success",
		"message":          "Enrollments fetched successfully",
		"show_preferences": len(list) > 0,
		"enrollments":      list,
	})
}

func (h *PreferenceHandler) GetCourse(c *gin.Context) {
	courseID := c.Param("course_id")
	view, rec, err := h.views.CourseView(c.Request.Context(), middleware.GetUserID(c), courseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"message":        "Notification preferences fetched successfully",
		"course_id":      courseID,
		"config_version": rec.ConfigVersion,
		"data":           view,
	})
}

func (h *PreferenceHandler) PatchCourse(c *gin.Context) {
	var req service.PatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	courseID := c.Param("course_id")
	view, err := h.patches.PatchCourse(c.Request.Context(), middleware.GetUserID(c), courseID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "Notification preferences update completed",
		"course_id": courseID,
		"data":      view,
	})
}

// Aggregated merges every active course into one view.
func (h *PreferenceHandler) Aggregated(c *gin.Context) {
	view, n, err := h.views.MergedView(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           "success",
		"message":          "Notification preferences retrieved",
		"show_preferences": n > 0,
		"data":             view,
	})
}

// UpdateAll patches every active course record.
func (h *PreferenceHandler) UpdateAll(c *gin.Context) {
	var req service.PatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := h.patches.PatchAll(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Notification preferences update completed",
		"data":    res,
	})
}

func (h *PreferenceHandler) GetFlat(c *gin.Context) {
	h.renderFlat(c, "Notification preferences retrieved", func() (service.PreferenceView, error) {
		return h.views.FlatView(c.Request.Context(), middleware.GetUserID(c))
	})
}

func (h *PreferenceHandler) PutFlat(c *gin.Context) {
	var req service.PatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	h.renderFlat(c, "Notification preferences update completed", func() (service.PreferenceView, error) {
		return h.patches.PatchAggregated(c.Request.Context(), middleware.GetUserID(c), req)
	})
}

func (h *PreferenceHandler) renderFlat(c *gin.Context, msg string, load func() (service.PreferenceView, error)) {
	view, err := load()
	if err != nil {
		respondError(c, err)
		return
	}
	show, err := h.views.ShowPreferences(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           "success",
		"message":          msg,
		"show_preferences": show,
		"data":             view,
	})
}
