package service

import (
	"context"

	"coursenotify/internal/catalog"
	"coursenotify/internal/domain"
	"coursenotify/internal/models"

	"gorm.io/gorm"
)

// AggregationService renders preference trees for one course, merged across courses, or from the
// flat cross-course layer.
type AggregationService struct {
	db      *gorm.DB
	catalog *catalog.Catalog
	store   *preferenceStore
	caps    CapabilityProvider
}

func NewAggregationService(db *gorm.DB, cat *catalog.Catalog, caps CapabilityProvider) *AggregationService {
	return &AggregationService{db: db, catalog: cat, store: newPreferenceStore(cat, db), caps: caps}
}

// Catalog returns the catalog the service renders against.
func (s *AggregationService) Catalog() *catalog.Catalog { return s.catalog }

// CourseView returns the tree of a single course, creating the record on first access.
func (s *AggregationService) CourseView(ctx context.Context, userID uint, courseID string) (PreferenceView, *models.CoursePreference, error) {
	rec, err := s.store.courseRecord(ctx, userID, courseID)
	if err != nil {
		return nil, nil, err
	}
	view, err := s.renderCourse(ctx, userID, courseID, rec.Tree())
	if err != nil {
		return nil, nil, err
	}
	return view, rec, nil
}

func (s *AggregationService) renderCourse(ctx context.Context, userID uint, courseID string, tree domain.PreferenceConfig) (PreferenceView, error) {
	visible, err := visibility(ctx, s.catalog, s.caps, userID, courseID)
	if err != nil {
		return nil, err
	}
	return renderView(s.catalog, tree, visible, nil), nil
}

// MergedView folds every active course record into one tree. The second result is the number of
// active records merged; with none the catalog defaults are rendered.
func (s *AggregationService) MergedView(ctx context.Context, userID uint) (PreferenceView, int, error) {
	recs, err := s.store.activeRecords(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	merged, mixed := mergeTrees(s.catalog, trees(recs))
	visible, err := visibility(ctx, s.catalog, s.caps, userID, "")
	if err != nil {
		return nil, 0, err
	}
	return renderView(s.catalog, merged, visible, mixed), len(recs), nil
}

// FlatView renders the flat layer. App enablement still comes from the course records since the
// flat layer has no app-level switch.
func (s *AggregationService) FlatView(ctx context.Context, userID uint) (PreferenceView, error) {
	visible, err := visibility(ctx, s.catalog, s.caps, userID, "")
	if err != nil {
		return nil, err
	}
	var view PreferenceView
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st := s.store.tx(tx)
		recs, err := st.activeRecords(ctx, userID)
		if err != nil {
			return err
		}
		merged, _ := mergeTrees(s.catalog, trees(recs))
		flat, err := st.flatRecords(ctx, userID, merged)
		if err != nil {
			return err
		}
		tree, mixed := flatTree(s.catalog, merged, flat)
		view = renderView(s.catalog, tree, visible, mixed)
		return nil
	})
	return view, err
}

// ShowPreferences reports whether the user has at least one active course record.
func (s *AggregationService) ShowPreferences(ctx context.Context, userID uint) (bool, error) {
	n, err := s.store.courses.CountActive(ctx, userID)
	return n > 0, err
}

// Enrollments lists the user's active course records.
func (s *AggregationService) Enrollments(ctx context.Context, userID uint) ([]models.CoursePreference, error) {
	return s.store.courses.ListActive(ctx, userID)
}

func trees(recs []models.CoursePreference) []domain.PreferenceConfig {
	out := make([]domain.PreferenceConfig, len(recs))
	for i := range recs {
		out[i] = recs[i].Tree()
	}
	return out
}

// flatTree builds a tree from flat records. "core" is the merge of its members' records and stays
// at the catalog defaults for apps without core members.
func flatTree(cat *catalog.Catalog, merged domain.PreferenceConfig, flat map[flatKey]*models.NotificationPreference) (domain.PreferenceConfig, map[string][]string) {
	tree := cat.DefaultConfig()
	mixed := map[string][]string{}
	for _, app := range cat.AllApps() {
		ac := tree[app.Name]
		ac.Enabled = merged[app.Name].Enabled
		for _, t := range app.ConfigurableTypes() {
			var cells []domain.ChannelSettings
			for _, k := range flatTargets(app, t.Name) {
				if p, ok := flat[k]; ok {
					cells = append(cells, p.Settings())
				}
			}
			cell, uniform := mergeCells(t, cells)
			ac.NotificationTypes[t.Name] = cell
			if !uniform {
				mixed[app.Name] = append(mixed[app.Name], t.Name)
			}
		}
		tree[app.Name] = ac
	}
	return tree, mixed
}
