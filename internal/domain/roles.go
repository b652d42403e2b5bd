package domain

// UserRoleType represents a role carried in the access token
type UserRoleType string

const (
	RoleOrgAdmin    UserRoleType = "org_admin"
	RoleManager     UserRoleType = "manager"
	RoleSales       UserRoleType = "sales"
	RoleLoanOfficer UserRoleType = "loan_officer"
	RoleViewer      UserRoleType = "viewer"
	RoleAPIService  UserRoleType = "api_service"
)

// PermissionType represents a permission granted through roles
type PermissionType string

const (
	PermissionDealsRead         PermissionType = "deals:read"
	PermissionDealsWrite        PermissionType = "deals:write"
	PermissionDealsDelete       PermissionType = "deals:delete"
	PermissionPipelineRead      PermissionType = "pipeline:read"
	PermissionPipelineConfigure PermissionType = "pipeline:configure"
	PermissionQuotesConvert     PermissionType = "quotes:convert"
	PermissionFinancialsRead    PermissionType = "financials:read"
)
