package service

import (
	"context"
	"errors"
	"log"

	"coursenotify/internal/catalog"
	"coursenotify/internal/domain"
	"coursenotify/internal/models"
	"coursenotify/internal/repository"

	"gorm.io/gorm"
)

// CapabilityProvider answers "does this user hold one of these roles in this course".
// An empty courseID asks about any course.
type CapabilityProvider interface {
	HasRole(ctx context.Context, userID uint, courseID string, roles ...string) (bool, error)
}

// preferenceStore bundles the repositories behind the two preference layers. A store is either
// bound to the root connection or to a transaction (see tx).
type preferenceStore struct {
	catalog *catalog.Catalog
	courses *repository.CoursePreferenceRepository
	flat    *repository.NotificationPreferenceRepository
	markers *repository.UserPreferenceRepository
}

func newPreferenceStore(cat *catalog.Catalog, db *gorm.DB) *preferenceStore {
	return &preferenceStore{
		catalog: cat,
		courses: repository.NewCoursePreferenceRepository(db),
		flat:    repository.NewNotificationPreferenceRepository(db),
		markers: repository.NewUserPreferenceRepository(db),
	}
}

func (s *preferenceStore) tx(tx *gorm.DB) *preferenceStore {
	return &preferenceStore{
		catalog: s.catalog,
		courses: s.courses.WithTx(tx),
		flat:    s.flat.WithTx(tx),
		markers: s.markers.WithTx(tx),
	}
}

// newTree returns the initial tree for a new course record. Users who used a one-click email
// unsubscribe start with every editable email channel off.
func (s *preferenceStore) newTree(ctx context.Context, userID uint) (domain.PreferenceConfig, error) {
	tree := s.catalog.DefaultConfig()
	unsubscribed, err := s.markers.Has(ctx, userID, domain.OneClickEmailUnsubKey)
	if err != nil {
		return nil, err
	}
	if unsubscribed {
		for _, app := range s.catalog.AllApps() {
			setAppWideChannel(app, tree, domain.ChannelEmail, false, "")
		}
	}
	return tree, nil
}

// createCourse inserts a new record for (user, course). When a concurrent request created it first,
// that record is returned instead.
func (s *preferenceStore) createCourse(ctx context.Context, userID uint, courseID string, active bool) (*models.CoursePreference, error) {
	tree, err := s.newTree(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec := &models.CoursePreference{
		UserID:        userID,
		CourseID:      courseID,
		IsActive:      active,
		ConfigVersion: s.catalog.Version(),
	}
	rec.Config = jsonTree(tree)
	created, err := s.courses.CreateIfMissing(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !created {
		return s.courses.Get(ctx, userID, courseID)
	}
	return rec, nil
}

// courseRecord returns the record for (user, course), creating an active one when missing, and
// migrates it to the current catalog version.
func (s *preferenceStore) courseRecord(ctx context.Context, userID uint, courseID string) (*models.CoursePreference, error) {
	rec, err := s.courses.Get(ctx, userID, courseID)
	if errors.Is(err, domain.ErrNotFound) {
		rec, err = s.createCourse(ctx, userID, courseID, true)
	}
	if err != nil {
		return nil, err
	}
	if err := s.migrate(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// activeRecords returns the user's active records, each migrated to the current catalog version.
func (s *preferenceStore) activeRecords(ctx context.Context, userID uint) ([]models.CoursePreference, error) {
	recs, err := s.courses.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if err := s.migrate(ctx, &recs[i]); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// migrate regenerates the tree shape of a record behind the catalog version.
func (s *preferenceStore) migrate(ctx context.Context, rec *models.CoursePreference) error {
	if rec.ConfigVersion >= s.catalog.Version() {
		return nil
	}
	from := rec.ConfigVersion
	if err := s.courses.SaveTree(ctx, rec, s.catalog.Migrate(rec.Tree()), s.catalog.Version()); err != nil {
		if errors.Is(err, repository.ErrStaleRecord) {
			// someone else wrote it first, their copy is at least as new as ours
			fresh, gerr := s.courses.GetByID(ctx, rec.ID)
			if gerr != nil {
				return gerr
			}
			*rec = *fresh
			if rec.ConfigVersion >= s.catalog.Version() {
				return nil
			}
		}
		return err
	}
	log.Printf("[preferences] migrated course preference %d from version %d to %d", rec.ID, from, rec.ConfigVersion)
	return nil
}

// flatKey identifies a flat record.
type flatKey struct {
	app, typ string
}

// flatTargets returns the flat record keys backing a configurable type. "core" is backed by the
// app's core member types and by nothing when the app has none; any other type backs itself.
func flatTargets(app *catalog.AppDescriptor, typeName string) []flatKey {
	if typeName != domain.CoreType {
		return []flatKey{{app.Name, typeName}}
	}
	members := app.CoreTypeNames()
	keys := make([]flatKey, len(members))
	for i, m := range members {
		keys[i] = flatKey{app.Name, m}
	}
	return keys
}

// flatRecords returns every flat record of the user keyed by (app, type), creating the missing
// ones from seed, the user's merged per-course tree.
func (s *preferenceStore) flatRecords(ctx context.Context, userID uint, seed domain.PreferenceConfig) (map[flatKey]*models.NotificationPreference, error) {
	existing, err := s.flat.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	have := make(map[flatKey]bool, len(existing))
	for _, p := range existing {
		have[flatKey{p.AppName, p.Type}] = true
	}
	var missing []models.NotificationPreference
	for _, app := range s.catalog.AllApps() {
		for _, t := range app.ConfigurableTypes() {
			cell := seed[app.Name].NotificationTypes[t.Name]
			for _, k := range flatTargets(app, t.Name) {
				if have[k] {
					continue
				}
				p := models.NotificationPreference{UserID: userID, AppName: k.app, Type: k.typ}
				p.Apply(cell)
				missing = append(missing, p)
			}
		}
	}
	if len(missing) > 0 {
		if err := s.flat.CreateMissing(ctx, missing); err != nil {
			return nil, err
		}
		if existing, err = s.flat.ListByUser(ctx, userID); err != nil {
			return nil, err
		}
	}
	out := make(map[flatKey]*models.NotificationPreference, len(existing))
	for i := range existing {
		p := &existing[i]
		if !s.catalog.HasApp(p.AppName) || p.Type == domain.CoreType {
			continue
		}
		out[flatKey{p.AppName, p.Type}] = p
	}
	return out, nil
}

// visibility evaluates the capability rules of every restricted type for this request.
// The result maps type name to visible; unrestricted types are absent and always visible.
func visibility(ctx context.Context, cat *catalog.Catalog, caps CapabilityProvider, userID uint, courseID string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, app := range cat.AllApps() {
		for _, t := range app.ConfigurableTypes() {
			if !t.Restricted() {
				continue
			}
			ok := false
			if caps != nil {
				var err error
				if ok, err = caps.HasRole(ctx, userID, courseID, t.VisibleTo...); err != nil {
					return nil, err
				}
			}
			out[t.Name] = ok
		}
	}
	return out, nil
}
