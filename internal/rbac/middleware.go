package rbac

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/sokoline/sokoline/internal/shared"
)

// Role names as stored in the users table and the session claim.
const (
	RoleCustomer  = "CUSTOMER"
	RoleWholesale = "WHOLESALE"
	RoleSupplier  = "SUPPLIER"
	RoleEmployee  = "EMPLOYEE"
	RoleAdmin     = "ADMIN"
)

// ValidRole reports whether the value is a known role.
func ValidRole(role string) bool {
	switch strings.ToUpper(role) {
	case RoleCustomer, RoleWholesale, RoleSupplier, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

// Middleware wires role-based authorization helpers for HTTP handlers. The
// role is read from the session claim set at login, so no extra query runs
// per request.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAuthenticated ensures the request carries a logged-in session.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := m.currentRole(r); !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny ensures the current user holds at least one of the given roles.
func (m Middleware) RequireAny(roles ...string) func(http.Handler) http.Handler {
	required := normalizeRoles(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			role, ok := m.currentRole(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			for _, want := range required {
				if role == want {
					next.ServeHTTP(w, r)
					return
				}
			}
			if m.Logger != nil {
				m.Logger.Warn("rbac denied", slog.String("role", role), slog.String("path", r.URL.Path))
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func (m Middleware) currentRole(r *http.Request) (string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return "", false
	}
	if strings.TrimSpace(sess.User()) == "" {
		return "", false
	}
	role := strings.ToUpper(strings.TrimSpace(sess.Role()))
	if role == "" {
		return "", false
	}
	return role, true
}

func normalizeRoles(roles []string) []string {
	unique := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if role == "" {
			continue
		}
		unique[role] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for role := range unique {
		normalized = append(normalized, role)
	}
	return normalized
}
