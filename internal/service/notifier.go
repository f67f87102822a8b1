package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"coursenotify/internal/catalog"
	"coursenotify/internal/domain"
	"coursenotify/internal/models"
	"coursenotify/internal/repository"
)

// PushSender delivers device notifications. *FCMService satisfies it.
type PushSender interface {
	Push(ctx context.Context, msg PushMessage) error
}

// CountBroadcaster pushes live updates to a user's open connections. *ws.Hub satisfies it.
type CountBroadcaster interface {
	BroadcastToUser(userID uint, payload interface{})
}

// FireRequest asks for one notification to be delivered to one user.
type FireRequest struct {
	UserID           uint                   `json:"user_id" binding:"required"`
	CourseID         string                 `json:"course_id" binding:"required"`
	AppName          string                 `json:"app_name" binding:"required"`
	NotificationType string                 `json:"notification_type" binding:"required"`
	ContentContext   map[string]interface{} `json:"content_context"`
	ContentURL       string                 `json:"content_url" binding:"omitempty,url"`
}

// FireResult tells the caller what happened. Skipped is set when preferences suppressed everything.
type FireResult struct {
	Notification *models.Notification `json:"notification,omitempty"`
	Pushed       bool                 `json:"pushed"`
	Skipped      string               `json:"skipped,omitempty"`
}

// CountUpdate is the websocket message carrying a fresh unseen count.
type CountUpdate struct {
	Type string `json:"type"`
	*CountResult
}

// Notifier stores and delivers notifications according to the user's course preferences.
type Notifier struct {
	catalog       *catalog.Catalog
	courses       *repository.CoursePreferenceRepository
	notifications *repository.NotificationRepository
	users         *repository.UserRepository
	feed          *FeedService
	push          PushSender
	hub           CountBroadcaster
}

func NewNotifier(
	cat *catalog.Catalog,
	courses *repository.CoursePreferenceRepository,
	notifications *repository.NotificationRepository,
	users *repository.UserRepository,
	feed *FeedService,
	push PushSender,
	hub CountBroadcaster,
) *Notifier {
	return &Notifier{
		catalog:       cat,
		courses:       courses,
		notifications: notifications,
		users:         users,
		feed:          feed,
		push:          push,
		hub:           hub,
	}
}

// Fire resolves the preference cell governing req and delivers on the enabled channels.
func (n *Notifier) Fire(ctx context.Context, req FireRequest) (*FireResult, error) {
	_, t, err := n.catalog.CellFor(req.AppName, req.NotificationType)
	if err != nil {
		return nil, err
	}
	rec, err := n.courses.Get(ctx, req.UserID, req.CourseID)
	if errors.Is(err, domain.ErrNotFound) {
		return &FireResult{Skipped: "not_enrolled"}, nil
	}
	if err != nil {
		return nil, err
	}
	if !rec.IsActive {
		return &FireResult{Skipped: "not_enrolled"}, nil
	}
	ac := n.catalog.Migrate(rec.Tree())[req.AppName]
	if !ac.Enabled {
		return &FireResult{Skipped: "app_disabled"}, nil
	}
	cell := ac.NotificationTypes[t.Name]
	if !cell.Web && !cell.Email && !cell.Push {
		return &FireResult{Skipped: "channels_off"}, nil
	}

	res := &FireResult{}
	if cell.Web || cell.Email {
		notif := &models.Notification{
			UserID:           req.UserID,
			CourseID:         req.CourseID,
			AppName:          req.AppName,
			NotificationType: req.NotificationType,
			ContentContext:   req.ContentContext,
			ContentURL:       req.ContentURL,
			Web:              cell.Web,
			Email:            cell.Email,
		}
		if err := n.notifications.Create(ctx, notif); err != nil {
			return nil, err
		}
		res.Notification = notif
	}
	if cell.Push && n.push != nil {
		res.Pushed = n.sendPush(ctx, req)
	}
	if cell.Web && n.hub != nil {
		n.broadcastCount(ctx, req.UserID)
	}
	return res, nil
}

// sendPush never fails the firing: push is best effort.
func (n *Notifier) sendPush(ctx context.Context, req FireRequest) bool {
	u, err := n.users.GetByID(ctx, req.UserID)
	if err != nil || u.FCMToken == "" {
		return false
	}
	title, _ := req.ContentContext["title"].(string)
	if title == "" {
		title = strings.ReplaceAll(req.NotificationType, "_", " ")
	}
	body, _ := req.ContentContext["body"].(string)
	err = n.push.Push(ctx, PushMessage{
		Token: u.FCMToken,
		Title: title,
		Body:  body,
		Data: map[string]interface{}{
			"app_name":          req.AppName,
			"notification_type": req.NotificationType,
			"course_id":         req.CourseID,
			"content_url":       req.ContentURL,
		},
	})
	if err != nil {
		log.Printf("[notifier] push to user %d failed: %v", req.UserID, err)
		return false
	}
	return true
}

func (n *Notifier) broadcastCount(ctx context.Context, userID uint) {
	count, err := n.feed.Count(ctx, userID)
	if err != nil {
		log.Printf("[notifier] count for user %d: %v", userID, err)
		return
	}
	n.hub.BroadcastToUser(userID, CountUpdate{Type: "notification_count", CountResult: count})
}
