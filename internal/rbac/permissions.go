package rbac

// Permission is a named capability checked by the authorization gate.
type Permission struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

// Permission keys referenced across the service. Handlers and seeds use these
// constants so a typo fails at compile time, not at runtime.
const (
	PermDashboardView    = "dashboard.view"
	PermProfilesView     = "profiles.view"
	PermProfilesManage   = "profiles.manage"
	PermMembersManage    = "members.manage"
	PermRolesManage      = "rbac.roles.manage"
	PermCoursesView      = "courses.view"
	PermCoursesManage    = "courses.manage"
	PermFinanceView      = "finance.view"
	PermFinanceManage    = "finance.manage"
	PermReportsView      = "reports.view"
	PermApplicationsView = "applications.view"
)

// BuiltinPermissions is the seed catalog ensured at startup.
var BuiltinPermissions = []Permission{
	{Key: PermDashboardView, Description: "View the back-office dashboard"},
	{Key: PermProfilesView, Description: "View member profiles"},
	{Key: PermProfilesManage, Description: "Create and edit member profiles"},
	{Key: PermMembersManage, Description: "Create members and change their roles"},
	{Key: PermRolesManage, Description: "Edit role to permission assignments"},
	{Key: PermCoursesView, Description: "View course material"},
	{Key: PermCoursesManage, Description: "Manage course material"},
	{Key: PermFinanceView, Description: "View financial records"},
	{Key: PermFinanceManage, Description: "Manage financial records"},
	{Key: PermReportsView, Description: "View operational reports"},
	{Key: PermApplicationsView, Description: "View enrollment applications"},
}

// DefaultRoleGrants seeds permission sets for the non-elevated roles. Elevated
// roles bypass permission checks, so granting them keys is redundant but
// harmless.
var DefaultRoleGrants = map[Role][]string{
	RoleManager: {
		PermDashboardView,
		PermProfilesView,
		PermProfilesManage,
		PermCoursesView,
		PermCoursesManage,
		PermReportsView,
		PermApplicationsView,
	},
	RoleStudent: {
		PermDashboardView,
		PermCoursesView,
	},
	RoleShareholder: {
		PermDashboardView,
		PermFinanceView,
		PermReportsView,
	},
	RoleApplicant: {
		PermApplicationsView,
	},
}
