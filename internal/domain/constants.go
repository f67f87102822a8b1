package domain

// Channels a notification type can be configured on. EmailCadence is addressed like a channel
// in patches but carries a Cadence value instead of a bool.
const (
	ChannelWeb          = "web"
	ChannelEmail        = "email"
	ChannelPush         = "push"
	ChannelEmailCadence = "email_cadence"
)

// Channels lists the boolean delivery channels in display order.
var Channels = []string{ChannelWeb, ChannelEmail, ChannelPush}

// IsChannel reports whether name is a patchable channel, email_cadence included.
func IsChannel(name string) bool {
	switch name {
	case ChannelWeb, ChannelEmail, ChannelPush, ChannelEmailCadence:
		return true
	}
	return false
}

type Cadence string

const (
	CadenceDaily  Cadence = "Daily"
	CadenceWeekly Cadence = "Weekly"
	CadenceNever  Cadence = "Never"
)

func (c Cadence) Valid() bool {
	switch c {
	case CadenceDaily, CadenceWeekly, CadenceNever:
		return true
	}
	return false
}

// CoreType is the synthetic type whose settings stand in for every core notification type of an app.
const CoreType = "core"

// Capability tokens used by catalog visibility rules.
const (
	ForumRoleAdministrator = "Administrator"
	ForumRoleModerator     = "Moderator"
	ForumRoleCommunityTA   = "Community TA"
	CourseRoleStaff        = "staff"
	CourseRoleInstructor   = "instructor"
)

// OneClickEmailUnsubKey is the user preference key marking a one-click email unsubscribe.
const OneClickEmailUnsubKey = "one_click_email_unsubscribe"
