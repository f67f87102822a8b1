package catalog

import "coursenotify/internal/domain"

// SchemaVersion is the version of the tree shape produced by Default.
// Bump it whenever an app or type is added, removed or renamed.
const SchemaVersion = 14

var coreDefaults = domain.ChannelSettings{Web: true, Email: true, Push: true, EmailCadence: domain.CadenceDaily}

func typeDefaults(web, email bool) domain.ChannelSettings {
	return domain.ChannelSettings{Web: web, Email: email, Push: false, EmailCadence: domain.CadenceDaily}
}

func coreMember(name string) TypeDescriptor {
	return TypeDescriptor{Name: name, IsCore: true, Defaults: coreDefaults}
}

// Default returns the course notification catalog.
func Default() *Catalog {
	return MustNew(SchemaVersion,
		AppDescriptor{
			Name:             "discussion",
			EnabledByDefault: true,
			CoreDefaults:     coreDefaults,
			Types: []TypeDescriptor{
				coreMember("new_comment_on_response"),
				coreMember("new_comment"),
				coreMember("new_response"),
				coreMember("response_on_followed_post"),
				coreMember("comment_on_followed_post"),
				coreMember("response_endorsed_on_thread"),
				coreMember("response_endorsed"),
				{Name: "new_discussion_post", Defaults: typeDefaults(false, false), NonEditable: []string{domain.ChannelPush}},
				{Name: "new_question_post", Defaults: typeDefaults(false, false), NonEditable: []string{domain.ChannelPush}},
				{
					Name:        "content_reported",
					Defaults:    typeDefaults(true, true),
					NonEditable: []string{domain.ChannelPush},
					VisibleTo:   []string{domain.ForumRoleAdministrator, domain.ForumRoleModerator, domain.ForumRoleCommunityTA},
				},
				{Name: "new_instructor_all_learners_post", Defaults: typeDefaults(true, false), NonEditable: []string{domain.ChannelPush}},
			},
		},
		AppDescriptor{
			Name:             "updates",
			EnabledByDefault: true,
			CoreDefaults:     coreDefaults,
			Types: []TypeDescriptor{
				{Name: "course_updates", Defaults: typeDefaults(true, false), NonEditable: []string{domain.ChannelPush}},
			},
		},
		AppDescriptor{
			Name:             "grading",
			EnabledByDefault: true,
			CoreDefaults:     coreDefaults,
			Types: []TypeDescriptor{
				{
					Name:        "ora_staff_notifications",
					Defaults:    typeDefaults(true, false),
					NonEditable: []string{domain.ChannelPush},
					VisibleTo:   []string{domain.CourseRoleStaff, domain.CourseRoleInstructor},
				},
				{Name: "ora_grade_assigned", Defaults: typeDefaults(true, true), NonEditable: []string{domain.ChannelPush}},
			},
		},
		AppDescriptor{
			Name:             "enrollments",
			EnabledByDefault: true,
			CoreDefaults:     coreDefaults,
			Types: []TypeDescriptor{
				{Name: "audit_access_expiring_soon", Defaults: typeDefaults(true, false)},
			},
		},
	)
}
