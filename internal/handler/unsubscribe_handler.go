package handler

import (
	"net/http"

	"coursenotify/internal/service"

	"github.com/gin-gonic/gin"
)

// UnsubscribeHandler serves one-click links from emails. It is not behind AuthRequired; the token
// is the credential.
type UnsubscribeHandler struct {
	svc *service.UnsubscribeService
}

func NewUnsubscribeHandler(svc *service.UnsubscribeService) *UnsubscribeHandler {
	return &UnsubscribeHandler{svc: svc}
}

func (h *UnsubscribeHandler) Redeem(c *gin.Context) {
	res, err := h.svc.Redeem(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Preferences updated successfully",
		"data":    res,
	})
}
