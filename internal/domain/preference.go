package domain

// ChannelSettings is one cell row of the preference tree: the delivery channels of a single
// notification type.
type ChannelSettings struct {
	Web          bool    `json:"web"`
	Email        bool    `json:"email"`
	Push         bool    `json:"push"`
	EmailCadence Cadence `json:"email_cadence"`
}

// Get returns the boolean value of channel. email_cadence and unknown channels report false.
func (s ChannelSettings) Get(channel string) bool {
	switch channel {
	case ChannelWeb:
		return s.Web
	case ChannelEmail:
		return s.Email
	case ChannelPush:
		return s.Push
	}
	return false
}

// Set assigns a boolean channel and reports whether the value changed.
func (s *ChannelSettings) Set(channel string, v bool) bool {
	var field *bool
	switch channel {
	case ChannelWeb:
		field = &s.Web
	case ChannelEmail:
		field = &s.Email
	case ChannelPush:
		field = &s.Push
	default:
		return false
	}
	if *field == v {
		return false
	}
	*field = v
	return true
}

// SetCadence assigns the email cadence and reports whether it changed.
func (s *ChannelSettings) SetCadence(c Cadence) bool {
	if s.EmailCadence == c {
		return false
	}
	s.EmailCadence = c
	return true
}

// AppConfig is the persisted settings of one app inside a course preference record.
type AppConfig struct {
	Enabled           bool                       `json:"enabled"`
	NotificationTypes map[string]ChannelSettings `json:"notification_types"`
}

// PreferenceConfig is the persisted tree of a course preference record, keyed by app name.
// Its shape is owned by the catalog: use catalog.Migrate to normalize a tree loaded from storage.
type PreferenceConfig map[string]AppConfig

// Clone returns a deep copy.
func (c PreferenceConfig) Clone() PreferenceConfig {
	out := make(PreferenceConfig, len(c))
	for app, ac := range c {
		types := make(map[string]ChannelSettings, len(ac.NotificationTypes))
		for name, s := range ac.NotificationTypes {
			types[name] = s
		}
		out[app] = AppConfig{Enabled: ac.Enabled, NotificationTypes: types}
	}
	return out
}
