package service

import (
	"context"
	"fmt"
	"log"

	"coursenotify/config"
	"coursenotify/internal/auth"
	"coursenotify/internal/catalog"
	"coursenotify/internal/domain"

	"gorm.io/gorm"
)

// UnsubscribeResult reports what a one-click link changed.
type UnsubscribeResult struct {
	UserID         uint   `json:"-"`
	Channel        string `json:"channel"`
	Value          bool   `json:"value"`
	CoursesUpdated int    `json:"courses_updated"`
}

// UnsubscribeService applies one-click links: a channel switched for every app of the user.
type UnsubscribeService struct {
	db      *gorm.DB
	catalog *catalog.Catalog
	store   *preferenceStore
	cfg     config.UnsubscribeConfig
}

func NewUnsubscribeService(db *gorm.DB, cat *catalog.Catalog, cfg config.UnsubscribeConfig) *UnsubscribeService {
	return &UnsubscribeService{db: db, catalog: cat, store: newPreferenceStore(cat, db), cfg: cfg}
}

// Link returns a signed token that sets channel to value when redeemed.
func (s *UnsubscribeService) Link(userID uint, channel string, value bool) (string, error) {
	return auth.GenerateUnsubscribeToken(&s.cfg, userID, channel, value)
}

// Redeem verifies token and applies it.
func (s *UnsubscribeService) Redeem(ctx context.Context, token string) (*UnsubscribeResult, error) {
	claims, err := auth.ParseUnsubscribeToken(&s.cfg, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return s.Apply(ctx, claims.UserID, claims.Channel, claims.Value)
}

// Apply sets channel to value on every editable cell of every app, in all active course records and
// the flat layer. Switching email off leaves the unsubscribe marker so later enrollments start with
// email off; switching it on removes the marker.
func (s *UnsubscribeService) Apply(ctx context.Context, userID uint, channel string, value bool) (*UnsubscribeResult, error) {
	switch channel {
	case domain.ChannelWeb, domain.ChannelEmail, domain.ChannelPush:
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownChannel, channel)
	}
	res := &UnsubscribeResult{UserID: userID, Channel: channel, Value: value}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st := s.store.tx(tx)
		recs, err := st.courses.ListActive(ctx, userID)
		if err != nil {
			return err
		}
		for i := range recs {
			rec := &recs[i]
			tree := s.catalog.Migrate(rec.Tree())
			for _, app := range s.catalog.AllApps() {
				setAppWideChannel(app, tree, channel, value, "")
			}
			if err := st.courses.SaveTree(ctx, rec, tree, s.catalog.Version()); err != nil {
				return err
			}
		}
		res.CoursesUpdated = len(recs)

		flat, err := st.flat.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		for i := range flat {
			rec := &flat[i]
			if rec.Type == domain.CoreType {
				continue
			}
			_, t, err := s.catalog.CellFor(rec.AppName, rec.Type)
			if err != nil {
				continue
			}
			cell := rec.Settings()
			if t.IsNonEditable(channel) || !cell.Set(channel, value) {
				continue
			}
			rec.Apply(cell)
			if err := st.flat.Save(ctx, rec); err != nil {
				return err
			}
		}

		if channel != domain.ChannelEmail {
			return nil
		}
		if value {
			_, err = st.markers.Delete(ctx, userID, domain.OneClickEmailUnsubKey)
			return err
		}
		return st.markers.Set(ctx, userID, domain.OneClickEmailUnsubKey, "true")
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[unsubscribe] user %d set %s=%t on %d courses", userID, channel, value, res.CoursesUpdated)
	return res, nil
}
