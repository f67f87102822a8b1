package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"coursenotify/internal/catalog"
	"coursenotify/internal/domain"
	"coursenotify/internal/models"
	"coursenotify/internal/repository"

	"gorm.io/gorm"
)

// PatchRequest is the wire form of a preference patch. Which fields are present decides the shape:
// app-level (app + value), type-level (app + type + channel) or app-wide channel (app + channel).
type PatchRequest struct {
	NotificationApp     string      `json:"notification_app" binding:"required"`
	NotificationType    string      `json:"notification_type"`
	NotificationChannel string      `json:"notification_channel"`
	Value               interface{} `json:"value"`
	EmailCadence        string      `json:"email_cadence"`
}

// BulkResult is the outcome of a patch over every active course record.
type BulkResult struct {
	TotalUpdated int `json:"total_updated"`
}

type PatchService struct {
	db         *gorm.DB
	catalog    *catalog.Catalog
	store      *preferenceStore
	views      *AggregationService
	maxRetries int
}

func NewPatchService(db *gorm.DB, views *AggregationService, maxRetries int) *PatchService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &PatchService{
		db:         db,
		catalog:    views.catalog,
		store:      newPreferenceStore(views.catalog, db),
		views:      views,
		maxRetries: maxRetries,
	}
}

// validate resolves req against the catalog. Checks run in a fixed order and the first failure wins.
func (s *PatchService) validate(req PatchRequest) (cellPatch, error) {
	app, err := s.catalog.DescribeApp(req.NotificationApp)
	if err != nil {
		return cellPatch{}, err
	}
	p := cellPatch{app: app, typ: req.NotificationType, channel: req.NotificationChannel}
	if p.typ != "" {
		if _, ok := app.Type(p.typ); !ok {
			return cellPatch{}, fmt.Errorf("%w: %q in app %q", domain.ErrUnknownType, p.typ, app.Name)
		}
	}
	if p.channel == "" && req.EmailCadence != "" {
		p.channel = domain.ChannelEmailCadence
	}
	if p.channel != "" && !domain.IsChannel(p.channel) {
		return cellPatch{}, fmt.Errorf("%w: %q", domain.ErrUnknownChannel, p.channel)
	}
	if p.typ != "" && p.channel == "" {
		return cellPatch{}, fmt.Errorf("%w: a notification type needs a channel", domain.ErrUnknownChannel)
	}
	if p.channel == domain.ChannelEmailCadence {
		raw := req.EmailCadence
		if raw == "" {
			raw, _ = req.Value.(string)
		}
		p.cadence = domain.Cadence(raw)
		if !p.cadence.Valid() {
			return cellPatch{}, fmt.Errorf("%w: %q", domain.ErrInvalidCadence, raw)
		}
		return p, nil
	}
	v, ok := parseBool(req.Value)
	if !ok {
		return cellPatch{}, fmt.Errorf("%w: %v", domain.ErrInvalidValue, req.Value)
	}
	p.value = v
	return p, nil
}

func parseBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(b) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// retry runs fn in a transaction, starting over when an optimistic write lost its race.
func (s *PatchService) retry(ctx context.Context, fn func(st *preferenceStore) error) error {
	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(s.store.tx(tx))
		})
		if !errors.Is(err, repository.ErrStaleRecord) {
			return err
		}
		log.Printf("[preferences] concurrent update, retrying (attempt %d/%d)", attempt, s.maxRetries)
	}
	return err
}

// patchRecord applies p to rec, stamping the current catalog version. Unchanged current records
// are not written.
func (s *PatchService) patchRecord(ctx context.Context, st *preferenceStore, rec *models.CoursePreference, p cellPatch) error {
	tree := s.catalog.Migrate(rec.Tree())
	changed := p.applyTree(tree)
	if !changed && rec.ConfigVersion >= s.catalog.Version() {
		return nil
	}
	return st.courses.SaveTree(ctx, rec, tree, s.catalog.Version())
}

// clearUnsubscribe drops the one-click unsubscribe marker once email is turned back on.
func (s *PatchService) clearUnsubscribe(ctx context.Context, st *preferenceStore, userID uint, p cellPatch) error {
	if !p.enablesEmail() {
		return nil
	}
	n, err := st.markers.Delete(ctx, userID, domain.OneClickEmailUnsubKey)
	if n > 0 {
		log.Printf("[preferences] user %d re-enabled email, unsubscribe marker removed", userID)
	}
	return err
}

// ensureEnabled fails when any record has the app disabled, unless p is itself an app-level patch.
func ensureEnabled(p cellPatch, recs []models.CoursePreference) error {
	if p.appLevel() {
		return nil
	}
	for i := range recs {
		if !recs[i].Tree()[p.app.Name].Enabled {
			return fmt.Errorf("%w: %q in course %q", domain.ErrAppDisabled, p.app.Name, recs[i].CourseID)
		}
	}
	return nil
}

// PatchCourse applies req to the record of one course and returns its updated tree.
func (s *PatchService) PatchCourse(ctx context.Context, userID uint, courseID string, req PatchRequest) (PreferenceView, error) {
	p, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	var tree domain.PreferenceConfig
	err = s.retry(ctx, func(st *preferenceStore) error {
		rec, err := st.courseRecord(ctx, userID, courseID)
		if err != nil {
			return err
		}
		if err := ensureEnabled(p, []models.CoursePreference{*rec}); err != nil {
			return err
		}
		if err := s.patchRecord(ctx, st, rec, p); err != nil {
			return err
		}
		tree = rec.Tree()
		return s.clearUnsubscribe(ctx, st, userID, p)
	})
	if err != nil {
		return nil, err
	}
	return s.views.renderCourse(ctx, userID, courseID, tree)
}

// PatchAll applies req to every active course record of the user.
func (s *PatchService) PatchAll(ctx context.Context, userID uint, req PatchRequest) (BulkResult, error) {
	p, err := s.validate(req)
	if err != nil {
		return BulkResult{}, err
	}
	var res BulkResult
	err = s.retry(ctx, func(st *preferenceStore) error {
		n, err := s.patchActive(ctx, st, userID, p)
		if err != nil {
			return err
		}
		res.TotalUpdated = n
		return s.clearUnsubscribe(ctx, st, userID, p)
	})
	if err != nil {
		return BulkResult{}, err
	}
	return res, nil
}

func (s *PatchService) patchActive(ctx context.Context, st *preferenceStore, userID uint, p cellPatch) (int, error) {
	recs, err := st.courses.ListActive(ctx, userID)
	if err != nil {
		return 0, err
	}
	for i := range recs {
		recs[i].Config = jsonTree(s.catalog.Migrate(recs[i].Tree()))
	}
	if err := ensureEnabled(p, recs); err != nil {
		return 0, err
	}
	for i := range recs {
		if err := s.patchRecord(ctx, st, &recs[i], p); err != nil {
			return 0, err
		}
	}
	return len(recs), nil
}

// PatchAggregated writes req through the flat layer and every active course record in one
// transaction, then returns the flat view.
func (s *PatchService) PatchAggregated(ctx context.Context, userID uint, req PatchRequest) (PreferenceView, error) {
	p, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	err = s.retry(ctx, func(st *preferenceStore) error {
		recs, err := st.courses.ListActive(ctx, userID)
		if err != nil {
			return err
		}
		for i := range recs {
			recs[i].Config = jsonTree(s.catalog.Migrate(recs[i].Tree()))
		}
		merged, _ := mergeTrees(s.catalog, trees(recs))
		if !p.appLevel() && !merged[p.app.Name].Enabled {
			return fmt.Errorf("%w: %q", domain.ErrAppDisabled, p.app.Name)
		}
		if !p.appLevel() {
			flat, err := st.flatRecords(ctx, userID, merged)
			if err != nil {
				return err
			}
			if err := s.patchFlat(ctx, st, flat, p); err != nil {
				return err
			}
		}
		for i := range recs {
			if err := s.patchRecord(ctx, st, &recs[i], p); err != nil {
				return err
			}
		}
		return s.clearUnsubscribe(ctx, st, userID, p)
	})
	if err != nil {
		return nil, err
	}
	return s.views.FlatView(ctx, userID)
}

func (s *PatchService) patchFlat(ctx context.Context, st *preferenceStore, flat map[flatKey]*models.NotificationPreference, p cellPatch) error {
	for _, t := range p.targets() {
		for _, k := range flatTargets(p.app, t.Name) {
			rec, ok := flat[k]
			if !ok {
				continue
			}
			cell := rec.Settings()
			if !p.applyCell(t, &cell) {
				continue
			}
			rec.Apply(cell)
			if err := st.flat.Save(ctx, rec); err != nil {
				return err
			}
		}
	}
	return nil
}
