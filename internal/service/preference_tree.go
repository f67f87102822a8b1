package service

import (
	"slices"

	"coursenotify/internal/catalog"
	"coursenotify/internal/domain"

	"gorm.io/datatypes"
)

// AppPreferences is one app of a rendered preference tree.
type AppPreferences struct {
	Enabled               bool                              `json:"enabled"`
	CoreNotificationTypes []string                          `json:"core_notification_types"`
	NotificationTypes     map[string]domain.ChannelSettings `json:"notification_types"`
	NonEditable           map[string][]string               `json:"non_editable"`
	// MixedEmailCadence lists types whose cadence differs between the merged records.
	MixedEmailCadence []string `json:"mixed_email_cadence,omitempty"`
}

// PreferenceView is a rendered tree keyed by app name. It always holds every catalog app.
type PreferenceView map[string]AppPreferences

func jsonTree(tree domain.PreferenceConfig) datatypes.JSONType[domain.PreferenceConfig] {
	return datatypes.NewJSONType(tree)
}

// allCells lists every patchable cell, email_cadence included, in display order.
var allCells = append(slices.Clone(domain.Channels), domain.ChannelEmailCadence)

// renderView turns a tree into the response shape. visible hides restricted types; mixed marks
// types whose cadence is only representative.
func renderView(cat *catalog.Catalog, tree domain.PreferenceConfig, visible map[string]bool, mixed map[string][]string) PreferenceView {
	view := make(PreferenceView, len(tree))
	for _, app := range cat.AllApps() {
		ac := tree[app.Name]
		ap := AppPreferences{
			Enabled:               ac.Enabled,
			CoreNotificationTypes: app.CoreTypeNames(),
			NotificationTypes:     map[string]domain.ChannelSettings{},
			NonEditable:           map[string][]string{},
		}
		for _, t := range app.ConfigurableTypes() {
			if shown, restricted := visible[t.Name]; restricted && !shown {
				continue
			}
			ap.NotificationTypes[t.Name] = ac.NotificationTypes[t.Name]
			if locked := lockedChannels(t, ac.Enabled); len(locked) > 0 {
				ap.NonEditable[t.Name] = locked
			}
		}
		for _, name := range mixed[app.Name] {
			if _, ok := ap.NotificationTypes[name]; ok {
				ap.MixedEmailCadence = append(ap.MixedEmailCadence, name)
			}
		}
		view[app.Name] = ap
	}
	return view
}

// lockedChannels is the catalog floor of a type, raised to every channel while the app is disabled.
func lockedChannels(t catalog.TypeDescriptor, appEnabled bool) []string {
	var out []string
	for _, ch := range allCells {
		if !appEnabled || t.IsNonEditable(ch) {
			out = append(out, ch)
		}
	}
	return out
}

// mergeTrees folds trees into one: enabled and boolean channels are the conjunction across trees,
// non-editable cells come from the catalog, and cadence is the shared value or, when trees
// disagree, the most common one (ties to the earliest catalog cadence). The second result lists
// the disagreeing types per app. With no trees the catalog defaults are returned.
func mergeTrees(cat *catalog.Catalog, trees []domain.PreferenceConfig) (domain.PreferenceConfig, map[string][]string) {
	out := cat.DefaultConfig()
	mixed := map[string][]string{}
	if len(trees) == 0 {
		return out, mixed
	}
	for _, app := range cat.AllApps() {
		ac := out[app.Name]
		ac.Enabled = true
		for _, tree := range trees {
			ac.Enabled = ac.Enabled && tree[app.Name].Enabled
		}
		for _, t := range app.ConfigurableTypes() {
			cells := make([]domain.ChannelSettings, len(trees))
			for i, tree := range trees {
				cells[i] = tree[app.Name].NotificationTypes[t.Name]
			}
			merged, uniform := mergeCells(t, cells)
			ac.NotificationTypes[t.Name] = merged
			if !uniform {
				mixed[app.Name] = append(mixed[app.Name], t.Name)
			}
		}
		out[app.Name] = ac
	}
	return out, mixed
}

// mergeCells merges the cells of one type. uniform is false when the cadences disagree.
func mergeCells(t catalog.TypeDescriptor, cells []domain.ChannelSettings) (merged domain.ChannelSettings, uniform bool) {
	merged = t.Defaults
	if len(cells) == 0 {
		return merged, true
	}
	for _, ch := range domain.Channels {
		if t.IsNonEditable(ch) {
			continue
		}
		v := true
		for _, c := range cells {
			v = v && c.Get(ch)
		}
		merged.Set(ch, v)
	}
	if t.IsNonEditable(domain.ChannelEmailCadence) {
		return merged, true
	}
	counts := map[domain.Cadence]int{}
	for _, c := range cells {
		counts[c.EmailCadence]++
	}
	if len(counts) == 1 {
		merged.EmailCadence = cells[0].EmailCadence
		return merged, true
	}
	best := 0
	for _, cad := range []domain.Cadence{domain.CadenceDaily, domain.CadenceWeekly, domain.CadenceNever} {
		if counts[cad] > best {
			best = counts[cad]
			merged.EmailCadence = cad
		}
	}
	return merged, false
}

// cellPatch is a validated change to one or more cells of an app.
type cellPatch struct {
	app     *catalog.AppDescriptor
	typ     string // empty for app-level and app-wide patches
	channel string // empty for app-level patches
	value   bool
	cadence domain.Cadence
}

func (p cellPatch) appLevel() bool { return p.channel == "" }

// enablesEmail reports whether the patch turns email on somewhere.
func (p cellPatch) enablesEmail() bool {
	return p.channel == domain.ChannelEmail && p.value
}

// targets returns the configurable types the patch writes to.
func (p cellPatch) targets() []catalog.TypeDescriptor {
	if p.typ == "" {
		return p.app.ConfigurableTypes()
	}
	t, _ := p.app.Type(p.typ)
	return []catalog.TypeDescriptor{t}
}

// applyCell writes the patch into one cell unless the channel is locked for t.
func (p cellPatch) applyCell(t catalog.TypeDescriptor, s *domain.ChannelSettings) bool {
	if t.IsNonEditable(p.channel) {
		return false
	}
	if p.channel == domain.ChannelEmailCadence {
		return s.SetCadence(p.cadence)
	}
	return s.Set(p.channel, p.value)
}

// applyTree applies the patch to tree in place and reports whether anything changed.
func (p cellPatch) applyTree(tree domain.PreferenceConfig) bool {
	ac := tree[p.app.Name]
	if p.appLevel() {
		if ac.Enabled == p.value {
			return false
		}
		ac.Enabled = p.value
		tree[p.app.Name] = ac
		return true
	}
	changed := false
	for _, t := range p.targets() {
		s := ac.NotificationTypes[t.Name]
		if p.applyCell(t, &s) {
			ac.NotificationTypes[t.Name] = s
			changed = true
		}
	}
	return changed
}

// setAppWideChannel sets a boolean channel (or cadence when channel is email_cadence) on every
// editable type of app.
func setAppWideChannel(app *catalog.AppDescriptor, tree domain.PreferenceConfig, channel string, value bool, cadence domain.Cadence) bool {
	return cellPatch{app: app, channel: channel, value: value, cadence: cadence}.applyTree(tree)
}
