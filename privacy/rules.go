package privacy

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/cypher/query"
)

// Viewer represents the authenticated user making a request.
// This interface should be implemented by application-specific user types.
type Viewer interface {
	// GetID returns the viewer's unique identifier.
	GetID() string
	// GetRoles returns the viewer's roles.
	GetRoles() []string
	// GetTenantID returns the viewer's tenant identifier for multi-tenancy.
	// Returns empty string if not applicable.
	GetTenantID() string
}

// viewerCtxKey is the context key for storing the viewer.
type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext retrieves the viewer from the context.
// Returns nil if no viewer is present.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic implementation of the Viewer interface.
// Use this for testing or simple use cases.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string {
	return v.UserID
}

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string {
	return v.Roles
}

// GetTenantID returns the tenant ID.
func (v *SimpleViewer) GetTenantID() string {
	return v.TenantID
}

// DenyIfNoViewer returns a rule that denies access if no viewer is present
// in the context. This is typically used as the first rule in a policy to
// require authentication.
//
//	privacy.WritePolicy{
//	    privacy.DenyIfNoViewer(),
//	    privacy.HasRole("admin"),
//	    privacy.AlwaysDenyRule(),
//	}
func DenyIfNoViewer() ReadWriteRule {
	return ContextRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("privacy: viewer required")
		}
		return Skip
	})
}

// HasRole returns a rule that allows access if the viewer has the specified
// role. Skips if the viewer doesn't have the role (allows the next rule to
// evaluate).
func HasRole(role string) ReadWriteRule {
	return ContextRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		if slices.Contains(viewer.GetRoles(), role) {
			return Allow
		}
		return Skip
	})
}

// HasAnyRole returns a rule that allows access if the viewer has any of the
// specified roles. Skips otherwise.
func HasAnyRole(roles ...string) ReadWriteRule {
	return ContextRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		viewerRoles := viewer.GetRoles()
		for _, role := range roles {
			if slices.Contains(viewerRoles, role) {
				return Allow
			}
		}
		return Skip
	})
}

// IsOwner returns a write rule that allows the chain if every written
// entity carrying the given property matches the viewer's ID. Entities
// without the property abstain.
func IsOwner(field string) WriteRule {
	return WriteRuleFunc(func(ctx context.Context, s *query.Spec) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		matched := false
		for i := range s.Writes {
			value, ok := s.Writes[i].Entity.Get(field)
			if !ok {
				continue
			}
			if asID(value) != viewer.GetID() {
				return Skip
			}
			matched = true
		}
		if matched {
			return Allow
		}
		return Skip
	})
}

// TenantRule returns a write rule that allows the chain if every written
// entity carrying the given property matches the viewer's tenant, and
// denies on a mismatch. Used for multi-tenant isolation.
func TenantRule(field string) WriteRule {
	return WriteRuleFunc(func(ctx context.Context, s *query.Spec) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		viewerTenant := viewer.GetTenantID()
		if viewerTenant == "" {
			return Skip
		}
		matched := false
		for i := range s.Writes {
			value, ok := s.Writes[i].Entity.Get(field)
			if !ok {
				continue
			}
			if asID(value) != viewerTenant {
				return Denyf("privacy: tenant mismatch")
			}
			matched = true
		}
		if matched {
			return Allow
		}
		return Skip
	})
}

// OwnerReadRule returns a read rule that denies reads if no viewer is
// present. Use this as a guard for owner-filtered reads; the actual
// filtering belongs in the chain's predicates.
func OwnerReadRule() ReadRule {
	return readRuleFunc(func(ctx context.Context, _ *query.Spec) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("privacy: viewer required for owner-filtered read")
		}
		return Skip
	})
}

// TenantReadRule returns a read rule that denies reads if no viewer or
// tenant is present. Use this as a guard for tenant-filtered reads.
func TenantReadRule() ReadRule {
	return readRuleFunc(func(ctx context.Context, _ *query.Spec) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Denyf("privacy: viewer required for tenant-filtered read")
		}
		if viewer.GetTenantID() == "" {
			return Denyf("privacy: tenant required")
		}
		return Skip
	})
}

// asID renders a property value the way viewer IDs are compared.
func asID(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int64:
		return fmt.Sprintf("%d", v)
	case int:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// readRuleFunc is a function adapter for ReadRule.
type readRuleFunc func(context.Context, *query.Spec) error

func (f readRuleFunc) EvalRead(ctx context.Context, s *query.Spec) error {
	return f(ctx, s)
}
