package handler

import (
	"net/http"

	"coursenotify/internal/models"
	"coursenotify/internal/repository"
	"coursenotify/internal/service"

	"github.com/gin-gonic/gin"
)

// InternalHandler receives events from the enrollment, identity and firing subsystems.
type InternalHandler struct {
	enrollments *service.EnrollmentService
	notifier    *service.Notifier
	unsubscribe *service.UnsubscribeService
	users       *repository.UserRepository
	roles       *repository.RoleRepository
}

func NewInternalHandler(
	enrollments *service.EnrollmentService,
	notifier *service.Notifier,
	unsubscribe *service.UnsubscribeService,
	users *repository.UserRepository,
	roles *repository.RoleRepository,
) *InternalHandler {
	return &InternalHandler{enrollments: enrollments, notifier: notifier, unsubscribe: unsubscribe, users: users, roles: roles}
}

func (h *InternalHandler) Enrollment(c *gin.Context) {
	var ev service.EnrollmentEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		respondBindError(c, err)
		return
	}
	rec, err := h.enrollments.Handle(c.Request.Context(), ev)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": rec})
}

func (h *InternalHandler) Fire(c *gin.Context) {
	var req service.FireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := h.notifier.Fire(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Notification == nil {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"status": "success", "data": res})
}

func (h *InternalHandler) UpsertUser(c *gin.Context) {
	var req struct {
		ID       uint   `json:"id" binding:"required"`
		Username string `json:"username" binding:"required,max=64"`
		Email    string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	u := &models.User{ID: req.ID, Username: req.Username, Email: req.Email}
	if err := h.users.Upsert(c.Request.Context(), u); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": u})
}

// Role grants or revokes a forum or course role used for type visibility.
func (h *InternalHandler) Role(c *gin.Context) {
	var req struct {
		UserID   uint   `json:"user_id" binding:"required"`
		CourseID string `json:"course_id" binding:"required"`
		Role     string `json:"role" binding:"required"`
		Revoke   bool   `json:"revoke"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	var err error
	if req.Revoke {
		err = h.roles.Revoke(c.Request.Context(), req.UserID, req.CourseID, req.Role)
	} else {
		err = h.roles.Grant(c.Request.Context(), req.UserID, req.CourseID, req.Role)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// UnsubscribeLink returns a signed one-click link token for email templates.
func (h *InternalHandler) UnsubscribeLink(c *gin.Context) {
	var req struct {
		UserID  uint   `json:"user_id" binding:"required"`
		Channel string `json:"channel" binding:"required,oneof=web email push"`
		Value   bool   `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	token, err := h.unsubscribe.Link(req.UserID, req.Channel, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "token": token})
}
