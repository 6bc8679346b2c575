package domain

// Role names recognised in the caller's groups.
type Role string

const (
	RoleAdmin        Role = "Admin"
	RoleCityOfficial Role = "CityOfficial"
	RoleCitizen      Role = "Citizen"
)

// Permission names an action guarded by the authorization policy.
type Permission string

const (
	PermCreateIncident   Permission = "incidents:create"
	PermUpdateStatus     Permission = "incidents:update_status"
	PermReadAllIncidents Permission = "incidents:read_all"
	PermReadRegion       Permission = "incidents:read_region"
	PermReadDashboard    Permission = "dashboard:read"
	PermIssueUploadURLs  Permission = "attachments:upload"
)

// Caller is the resolved identity behind a request.
type Caller struct {
	ID     string
	Email  string
	Groups []string
	Region string
}

// Subjects returns the caller's groups plus the implicit citizen role.
func (c Caller) Subjects() []string {
	out := make([]string, 0, len(c.Groups)+1)
	out = append(out, c.Groups...)
	return append(out, string(RoleCitizen))
}
