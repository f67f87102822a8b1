package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"coursenotify/internal/domain"
	"coursenotify/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError renders err as {status:"error", message, reason}.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[http] %s %s request_id=%s: %v", c.Request.Method, c.FullPath(), middleware.GetRequestID(c), err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"status": "error", "message": msg, "reason": domain.Reason(err)})
}

// respondBindError reports the first failed field of a binding error.
func respondBindError(c *gin.Context, err error) {
	msg := "invalid request body"
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg = fmt.Sprintf("%s failed on '%s' validation", fe.Field(), fe.Tag())
	}
	c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": msg, "reason": "invalid_request"})
}
