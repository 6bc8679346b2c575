package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/cityreport/incident-service/internal/domain"
)

const policyModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.act == p.act
`

var defaultPermissions = map[domain.Role][]domain.Permission{
	domain.RoleCitizen: {
		domain.PermCreateIncident,
		domain.PermIssueUploadURLs,
	},
	domain.RoleCityOfficial: {
		domain.PermUpdateStatus,
		domain.PermReadRegion,
		domain.PermReadDashboard,
	},
	domain.RoleAdmin: {
		domain.PermUpdateStatus,
		domain.PermReadAllIncidents,
		domain.PermReadDashboard,
	},
}

// Group names issued by the identity provider that map onto roles.
var defaultRoleAliases = map[string]domain.Role{
	"admin":    domain.RoleAdmin,
	"cityAuth": domain.RoleCityOfficial,
}

// Policy answers whether a caller holds a permission.
type Policy struct {
	enforcer *casbin.Enforcer
}

// NewPolicy builds the role/permission policy.
func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("load policy model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	for role, perms := range defaultPermissions {
		for _, perm := range perms {
			if _, err := enforcer.AddPolicy(string(role), string(perm)); err != nil {
				return nil, fmt.Errorf("add policy %s %s: %w", role, perm, err)
			}
		}
	}
	for group, role := range defaultRoleAliases {
		if _, err := enforcer.AddGroupingPolicy(group, string(role)); err != nil {
			return nil, fmt.Errorf("add role alias %s: %w", group, err)
		}
	}
	return &Policy{enforcer: enforcer}, nil
}

// Allowed reports whether any of the caller's roles grants perm.
func (p *Policy) Allowed(caller domain.Caller, perm domain.Permission) bool {
	for _, sub := range caller.Subjects() {
		ok, err := p.enforcer.Enforce(sub, string(perm))
		if err == nil && ok {
			return true
		}
	}
	return false
}
