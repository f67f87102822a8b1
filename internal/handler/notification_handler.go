package handler

import (
	"net/http"
	"strconv"
	"strings"

	"coursenotify/config"
	"coursenotify/internal/middleware"
	"coursenotify/internal/models"
	"coursenotify/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	feed *service.FeedService
	cfg  config.NotificationsConfig
}

func NewNotificationHandler(feed *service.FeedService, cfg config.NotificationsConfig) *NotificationHandler {
	return &NotificationHandler{feed: feed, cfg: cfg}
}

// List pages through the feed with limit/offset. Accepts app_name and channels (comma separated
// or repeated).
func (h *NotificationHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.cfg.DefaultPageSize)))
	if err != nil || limit <= 0 {
		limit = h.cfg.DefaultPageSize
	}
	if limit > h.cfg.MaxPageSize {
		limit = h.cfg.MaxPageSize
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	var channels []string
	for _, v := range c.QueryArray("channels") {
		for _, ch := range strings.Split(v, ",") {
			if ch = strings.TrimSpace(ch); ch != "" {
				channels = append(channels, ch)
			}
		}
	}

	filter := service.FeedFilter{AppName: c.Query("app_name"), Channels: channels}
	list := make([]models.Notification, 0, limit)
	more := false
	i := 0
	for n, err := range h.feed.List(c.Request.Context(), middleware.GetUserID(c), filter) {
		if err != nil {
			respondError(c, err)
			return
		}
		if i++; i <= offset {
			continue
		}
		if len(list) == limit {
			more = true
			break
		}
		list = append(list, n)
	}
	resp := gin.H{"results": list, "count": len(list)}
	if more {
		resp["next_offset"] = offset + limit
	}
	c.JSON(http.StatusOK, resp)
}

func (h *NotificationHandler) Count(c *gin.Context) {
	res, err := h.feed.Count(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *NotificationHandler) MarkSeen(c *gin.Context) {
	n, err := h.feed.MarkSeen(c.Request.Context(), middleware.GetUserID(c), c.Param("app_name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notifications marked as seen.", "updated": n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var target service.ReadTarget
	if err := c.ShouldBindJSON(&target); err != nil {
		respondBindError(c, err)
		return
	}
	n, err := h.feed.MarkRead(c.Request.Context(), middleware.GetUserID(c), target)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notifications marked read.", "updated": n})
}
