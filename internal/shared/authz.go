package shared

// Marketplace permissions declared for RBAC.
const (
	PermUsersView   = "users.view"
	PermUsersManage = "users.manage"

	PermProductsView      = "products.view"
	PermProductsManageOwn = "products.manage.own"
	PermProductsManageAll = "products.manage.all"

	PermQueriesCreate  = "queries.create"
	PermQueriesViewAll = "queries.view.all"
	PermQueriesAssign  = "queries.assign"
	PermQueriesUpdate  = "queries.update"

	PermOrdersCreate  = "orders.create"
	PermOrdersViewOwn = "orders.view.own"
	PermOrdersViewAll = "orders.view.all"
	PermOrdersUpdate  = "orders.update"
	PermOrdersDelete  = "orders.delete"

	PermDashboardView = "dashboard.view"
	PermReportsExport = "reports.export"
	PermJobsView      = "jobs.view"
	PermAuditView     = "audit.view"
)

// AllPermissions lists every permission known to the marketplace.
func AllPermissions() []string {
	return []string{
		PermUsersView,
		PermUsersManage,
		PermProductsView,
		PermProductsManageOwn,
		PermProductsManageAll,
		PermQueriesCreate,
		PermQueriesViewAll,
		PermQueriesAssign,
		PermQueriesUpdate,
		PermOrdersCreate,
		PermOrdersViewOwn,
		PermOrdersViewAll,
		PermOrdersUpdate,
		PermOrdersDelete,
		PermDashboardView,
		PermReportsExport,
		PermJobsView,
		PermAuditView,
	}
}

// RolePermissions returns the static permission grant of a role.
func RolePermissions(role Role) []string {
	switch role {
	case RoleAdmin:
		return AllPermissions()
	case RoleSales:
		return []string{
			PermUsersView,
			PermProductsView,
			PermQueriesCreate,
			PermQueriesViewAll,
			PermQueriesAssign,
			PermQueriesUpdate,
			PermOrdersViewAll,
			PermOrdersUpdate,
			PermDashboardView,
			PermReportsExport,
		}
	case RoleBuyer:
		return []string{
			PermProductsView,
			PermQueriesCreate,
			PermOrdersCreate,
			PermOrdersViewOwn,
			PermOrdersUpdate,
			PermDashboardView,
		}
	case RoleSeller:
		return []string{
			PermProductsView,
			PermProductsManageOwn,
			PermQueriesCreate,
			PermOrdersViewOwn,
			PermOrdersUpdate,
			PermDashboardView,
		}
	}
	return nil
}
