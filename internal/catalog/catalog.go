// Package catalog holds the immutable registry of notification apps and types.
//
// A Catalog is built once at startup and passed explicitly to the preference and feed services.
// It is safe for concurrent use because nothing mutates it after construction.
package catalog

import (
	"fmt"
	"slices"

	"coursenotify/internal/domain"
)

// TypeDescriptor describes one notification type of an app.
type TypeDescriptor struct {
	Name        string
	Defaults    domain.ChannelSettings
	IsCore      bool     // folded into the app's synthetic "core" type
	NonEditable []string // channels whose value is fixed by policy
	VisibleTo   []string // capability tokens; empty means visible to everyone
}

// IsNonEditable reports whether channel is locked by catalog policy.
func (t TypeDescriptor) IsNonEditable(channel string) bool {
	return slices.Contains(t.NonEditable, channel)
}

// Restricted reports whether the type is shown only to holders of a capability.
func (t TypeDescriptor) Restricted() bool {
	return len(t.VisibleTo) > 0
}

// AppDescriptor describes a notification-producing app.
type AppDescriptor struct {
	Name             string
	EnabledByDefault bool
	CoreDefaults     domain.ChannelSettings
	CoreNonEditable  []string
	Types            []TypeDescriptor
}

// CoreTypeNames returns the names of the types folded into the "core" type, in catalog order.
func (a *AppDescriptor) CoreTypeNames() []string {
	names := []string{}
	for _, t := range a.Types {
		if t.IsCore {
			names = append(names, t.Name)
		}
	}
	return names
}

// Core returns the synthetic "core" type of the app.
func (a *AppDescriptor) Core() TypeDescriptor {
	return TypeDescriptor{
		Name:        domain.CoreType,
		Defaults:    a.CoreDefaults,
		NonEditable: a.CoreNonEditable,
	}
}

// ConfigurableTypes returns the types that appear in a preference tree: every non-core type
// followed by the synthetic "core" type.
func (a *AppDescriptor) ConfigurableTypes() []TypeDescriptor {
	out := make([]TypeDescriptor, 0, len(a.Types)+1)
	for _, t := range a.Types {
		if !t.IsCore {
			out = append(out, t)
		}
	}
	return append(out, a.Core())
}

// Type looks up a configurable type by name, "core" included. Core member types are not
// addressable on their own.
func (a *AppDescriptor) Type(name string) (TypeDescriptor, bool) {
	if name == domain.CoreType {
		return a.Core(), true
	}
	for _, t := range a.Types {
		if t.Name == name && !t.IsCore {
			return t, true
		}
	}
	return TypeDescriptor{}, false
}

// Catalog is the process-wide registry.
type Catalog struct {
	apps    []AppDescriptor
	index   map[string]int
	version int
}

// New validates apps and builds a Catalog. version is the schema version stamped on course
// preference records; records behind it are migrated on access.
func New(version int, apps ...AppDescriptor) (*Catalog, error) {
	c := &Catalog{apps: make([]AppDescriptor, 0, len(apps)), index: make(map[string]int, len(apps)), version: version}
	typeOwner := map[string]string{}
	for _, app := range apps {
		if app.Name == "" {
			return nil, fmt.Errorf("catalog: app with empty name")
		}
		if _, dup := c.index[app.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate app %q", app.Name)
		}
		if !app.CoreDefaults.EmailCadence.Valid() {
			return nil, fmt.Errorf("catalog: app %q core cadence %q", app.Name, app.CoreDefaults.EmailCadence)
		}
		if err := validChannels(app.CoreNonEditable); err != nil {
			return nil, fmt.Errorf("catalog: app %q core: %w", app.Name, err)
		}
		for _, t := range app.Types {
			if t.Name == "" || t.Name == domain.CoreType {
				return nil, fmt.Errorf("catalog: app %q has invalid type name %q", app.Name, t.Name)
			}
			if owner, ok := typeOwner[t.Name]; ok {
				return nil, fmt.Errorf("catalog: type %q registered by both %q and %q", t.Name, owner, app.Name)
			}
			typeOwner[t.Name] = app.Name
			if !t.IsCore && !t.Defaults.EmailCadence.Valid() {
				return nil, fmt.Errorf("catalog: type %q cadence %q", t.Name, t.Defaults.EmailCadence)
			}
			if err := validChannels(t.NonEditable); err != nil {
				return nil, fmt.Errorf("catalog: type %q: %w", t.Name, err)
			}
		}
		c.index[app.Name] = len(c.apps)
		c.apps = append(c.apps, app)
	}
	return c, nil
}

// MustNew is New that panics; for package-level catalogs.
func MustNew(version int, apps ...AppDescriptor) *Catalog {
	c, err := New(version, apps...)
	if err != nil {
		panic(err)
	}
	return c
}

func validChannels(channels []string) error {
	for _, ch := range channels {
		if !domain.IsChannel(ch) {
			return fmt.Errorf("%w: %q", domain.ErrUnknownChannel, ch)
		}
	}
	return nil
}

// Version is the current schema version of course preference trees.
func (c *Catalog) Version() int { return c.version }

// AllApps returns the apps in catalog order. Callers must treat the descriptors as read-only.
func (c *Catalog) AllApps() []*AppDescriptor {
	out := make([]*AppDescriptor, len(c.apps))
	for i := range c.apps {
		out[i] = &c.apps[i]
	}
	return out
}

// AppNames returns the app names in catalog order.
func (c *Catalog) AppNames() []string {
	names := make([]string, len(c.apps))
	for i, a := range c.apps {
		names[i] = a.Name
	}
	return names
}

// DescribeApp returns the app descriptor or an error wrapping domain.ErrUnknownApp.
func (c *Catalog) DescribeApp(name string) (*AppDescriptor, error) {
	i, ok := c.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownApp, name)
	}
	return &c.apps[i], nil
}

// HasApp reports whether name is a catalog app.
func (c *Catalog) HasApp(name string) bool {
	_, ok := c.index[name]
	return ok
}

// ResolveType returns the app and configurable type, failing with ErrUnknownApp or ErrUnknownType.
func (c *Catalog) ResolveType(appName, typeName string) (*AppDescriptor, TypeDescriptor, error) {
	app, err := c.DescribeApp(appName)
	if err != nil {
		return nil, TypeDescriptor{}, err
	}
	t, ok := app.Type(typeName)
	if !ok {
		return nil, TypeDescriptor{}, fmt.Errorf("%w: %q in app %q", domain.ErrUnknownType, typeName, appName)
	}
	return app, t, nil
}

// CellFor maps any catalog type name, core members included, to the app and configurable type
// whose settings govern it. Core members resolve to the app's "core" type.
func (c *Catalog) CellFor(appName, typeName string) (*AppDescriptor, TypeDescriptor, error) {
	app, err := c.DescribeApp(appName)
	if err != nil {
		return nil, TypeDescriptor{}, err
	}
	if t, ok := app.Type(typeName); ok {
		return app, t, nil
	}
	if slices.Contains(app.CoreTypeNames(), typeName) {
		return app, app.Core(), nil
	}
	return nil, TypeDescriptor{}, fmt.Errorf("%w: %q in app %q", domain.ErrUnknownType, typeName, appName)
}

// DefaultConfig returns a fresh tree holding catalog defaults for every app.
func (c *Catalog) DefaultConfig() domain.PreferenceConfig {
	return c.Migrate(nil)
}

// Migrate normalizes a stored tree to the catalog's current shape: every app and configurable
// type is present, cells missing from cfg get catalog defaults, unknown apps and types are dropped,
// and existing values are preserved. cfg is not modified.
func (c *Catalog) Migrate(cfg domain.PreferenceConfig) domain.PreferenceConfig {
	out := make(domain.PreferenceConfig, len(c.apps))
	for i := range c.apps {
		app := &c.apps[i]
		old, had := cfg[app.Name]
		ac := domain.AppConfig{
			Enabled:           app.EnabledByDefault,
			NotificationTypes: make(map[string]domain.ChannelSettings),
		}
		if had {
			ac.Enabled = old.Enabled
		}
		for _, t := range app.ConfigurableTypes() {
			s, ok := old.NotificationTypes[t.Name]
			if !ok {
				s = t.Defaults
			}
			if !s.EmailCadence.Valid() {
				s.EmailCadence = t.Defaults.EmailCadence
			}
			ac.NotificationTypes[t.Name] = s
		}
		out[app.Name] = ac
	}
	return out
}
