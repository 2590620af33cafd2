package iam

import (
	"github.com/casbin/casbin/v2"
	gormadapter "github.com/casbin/gorm-adapter/v3"

	"github.com/forbearing/surrealkv-core/types/consts"
)

// RBAC administers role grants for non-record actors: which (ns,db) scopes a
// role is attached to, independent of the hot-path resolution in resolve.go
// that only ever reads types.Actor.Roles. It is the same administrative
// surface the teacher exposes over casbin (forbearing-gst/authz/rbac/rbac.go),
// adapted from a generic subject/resource/action model to the engine's
// actor/scope/role model.
type RBAC interface {
	AssignRole(actorID string, role consts.Role, ns, db string) error
	UnassignRole(actorID string, role consts.Role, ns, db string) error
	RolesForActor(actorID, ns, db string) ([]consts.Role, error)
}

type casbinRBAC struct {
	enforcer *casbin.Enforcer
	adapter  *gormadapter.Adapter
}

// NewCasbinRBAC wraps an already-initialized enforcer/adapter pair. Role
// grants are policies of the shape (actorID, "ns/db", role).
func NewCasbinRBAC(enforcer *casbin.Enforcer, adapter *gormadapter.Adapter) RBAC {
	return &casbinRBAC{enforcer: enforcer, adapter: adapter}
}

func scopeDomain(ns, db string) string { return ns + "/" + db }

func (r *casbinRBAC) AssignRole(actorID string, role consts.Role, ns, db string) error {
	if _, err := r.enforcer.AddGroupingPolicy(actorID, role.String(), scopeDomain(ns, db)); err != nil {
		return err
	}
	return r.enforcer.SavePolicy()
}

func (r *casbinRBAC) UnassignRole(actorID string, role consts.Role, ns, db string) error {
	if _, err := r.enforcer.RemoveGroupingPolicy(actorID, role.String(), scopeDomain(ns, db)); err != nil {
		return err
	}
	return r.enforcer.SavePolicy()
}

func (r *casbinRBAC) RolesForActor(actorID, ns, db string) ([]consts.Role, error) {
	names, err := r.enforcer.GetRolesForUserInDomain(actorID, scopeDomain(ns, db))
	if err != nil {
		return nil, err
	}
	roles := make([]consts.Role, 0, len(names))
	for _, n := range names {
		if role, ok := roleByName(n); ok {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func roleByName(name string) (consts.Role, bool) {
	for _, r := range []consts.Role{consts.RoleViewer, consts.RoleEditor, consts.RoleOwner} {
		if r.String() == name {
			return r, true
		}
	}
	return 0, false
}

// noopRBAC is returned when RBAC administration is disabled, mirroring the
// teacher's noop fallback so callers never nil-check.
type noopRBAC struct{}

func NoopRBAC() RBAC { return noopRBAC{} }

func (noopRBAC) AssignRole(string, consts.Role, string, string) error   { return nil }
func (noopRBAC) UnassignRole(string, consts.Role, string, string) error { return nil }
func (noopRBAC) RolesForActor(string, string, string) ([]consts.Role, error) {
	return nil, nil
}
