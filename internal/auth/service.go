// Package auth makes the per-request authorization decision: token
// verification, revocation-list check, principal resolution and the
// role → privilege → feature mapping.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"backoffice.org/internal/apperr"
	"backoffice.org/internal/schema"
	"backoffice.org/internal/store"
)

// PublicFeatures are resource namespaces that bypass the privilege check
// once the token and revocation checks pass.
var PublicFeatures = []string{"auth"}

// RequiredFlag maps an HTTP method to the privilege bit it needs.
func RequiredFlag(method string) (Flag, bool) {
	switch strings.ToUpper(method) {
	case http.MethodGet:
		return FlagRead, true
	case http.MethodPost:
		return FlagCreate, true
	case http.MethodPatch, http.MethodPut:
		return FlagUpdate, true
	case http.MethodDelete:
		return FlagDelete, true
	default:
		return 0, false
	}
}

// Service resolves principals and decides ALLOW/DENY.
type Service struct {
	gw     store.Gateway
	tokens *TokenService
}

// NewService constructs the decision engine over an explicit gateway handle.
func NewService(gw store.Gateway, tokens *TokenService) *Service {
	return &Service{gw: gw, tokens: tokens}
}

// Tokens exposes the underlying token service for issuing flows.
func (s *Service) Tokens() *TokenService { return s.tokens }

// Authenticate runs the full request decision for a feature namespace:
// UNAUTHENTICATED → TOKEN_VALIDATED → ROLE_RESOLVED → DECISION.
func (s *Service) Authenticate(ctx context.Context, authHeader, feature, method string) (Principal, error) {
	if strings.TrimSpace(authHeader) == "" {
		return Principal{}, apperr.Unauthorized("Access Denied")
	}
	if err := s.checkRevoked(ctx, authHeader); err != nil {
		return Principal{}, err
	}
	claims, err := s.verifyHeader(authHeader)
	if err != nil {
		return Principal{}, err
	}
	principal, role, err := s.Resolve(ctx, claims.UserID)
	if err != nil {
		if apperr.IsClassified(err) {
			return Principal{}, err
		}
		return Principal{}, apperr.Unauthorized("User role not found")
	}

	for _, public := range PublicFeatures {
		if strings.EqualFold(public, feature) {
			return principal, nil
		}
	}

	flag, known := RequiredFlag(method)
	if !known || !role.Allows(feature, flag) {
		return Principal{}, apperr.Forbidden("You do not have permission to access this resource")
	}
	return principal, nil
}

// VerifyHeader validates the bearer token independently of the privilege
// check and returns its claims.
func (s *Service) VerifyHeader(ctx context.Context, authHeader string) (*Claims, error) {
	if strings.TrimSpace(authHeader) == "" {
		return nil, apperr.Unauthorized("Access Denied")
	}
	return s.verifyHeader(authHeader)
}

func (s *Service) verifyHeader(authHeader string) (*Claims, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	token := authHeader
	if len(parts) == 2 {
		token = parts[1]
	}
	claims, err := s.tokens.ParseAndValidate(token)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			return nil, apperr.Unauthorized("Token expired")
		case errors.Is(err, ErrTokenMalformed):
			return nil, apperr.Unauthorized("Malformed token")
		default:
			return nil, apperr.Unauthorized("Access Denied")
		}
	}
	return claims, nil
}

func (s *Service) checkRevoked(ctx context.Context, authHeader string) error {
	_, err := s.gw.FindFirst(ctx, "blacklists", store.Filter{
		Equals: map[string]any{"token": authHeader},
	})
	if err == nil {
		return apperr.Unauthorized("Token revoked")
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// Resolve loads the principal and its role with the full privilege set.
func (s *Service) Resolve(ctx context.Context, userID int64) (Principal, Role, error) {
	user, err := s.gw.FindUnique(ctx, "users", userID, nil)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Principal{}, Role{}, apperr.Unauthorized("User role not found")
		}
		return Principal{}, Role{}, err
	}
	principal := principalFromRecord(user)
	role, err := s.roleWithPrivileges(ctx, principal.RoleID)
	if err != nil {
		return Principal{}, Role{}, err
	}
	return principal, role, nil
}

func (s *Service) roleWithPrivileges(ctx context.Context, roleID int64) (Role, error) {
	rec, err := s.gw.FindUnique(ctx, "roles", roleID, nil)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Role{}, apperr.Unauthorized("User role not found")
		}
		return Role{}, err
	}
	role := Role{ID: roleID}
	role.Name, _ = store.String(rec, "name")
	role.Status, _ = store.Bool(rec, "status")

	rows, err := s.gw.FindMany(ctx, "privileges", store.Query{
		Filter:  store.Filter{Equals: map[string]any{"roleId": roleID}},
		Take:    -1,
		Include: []string{"feature"},
	})
	if err != nil {
		return Role{}, err
	}
	for _, row := range rows {
		p := Privilege{RoleID: roleID}
		p.FeatureID, _ = store.Int64(row, "featureId")
		p.Create, _ = store.Bool(row, "privilegeCreate")
		p.Read, _ = store.Bool(row, "privilegeRead")
		p.Update, _ = store.Bool(row, "privilegeUpdate")
		p.Delete, _ = store.Bool(row, "privilegeDelete")
		if feature, ok := row["feature"].(store.Record); ok {
			p.FeatureName, _ = store.String(feature, "name")
		}
		role.Privileges = append(role.Privileges, p)
	}
	return role, nil
}

// IsAdmin re-verifies the token and checks the resolved role name against
// the administrative allow-list. Used by gated delete operations.
func (s *Service) IsAdmin(ctx context.Context, authHeader string) (bool, error) {
	claims, err := s.VerifyHeader(ctx, authHeader)
	if err != nil {
		return false, err
	}
	_, role, err := s.Resolve(ctx, claims.UserID)
	if err != nil {
		return false, err
	}
	for _, name := range schema.AdminRoles {
		if role.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Login checks credentials and returns the principal. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Principal, error) {
	user, err := s.gw.FindFirst(ctx, "users", store.Filter{
		Equals: map[string]any{"email": email},
	})
	if err != nil {
		return Principal{}, apperr.Unauthorized("Invalid email or password.")
	}
	hash, _ := store.String(user, "password")
	if VerifyPassword(hash, password) != nil {
		return Principal{}, apperr.Unauthorized("Invalid email or password.")
	}
	return principalFromRecord(user), nil
}

// Revoke appends the authorization header to the revocation list. A token
// already present is treated as revoked.
func (s *Service) Revoke(ctx context.Context, authHeader string) error {
	_, err := s.gw.Create(ctx, "blacklists", store.Record{"token": authHeader})
	if errors.Is(err, store.ErrConflict) {
		return nil
	}
	return err
}

func principalFromRecord(rec store.Record) Principal {
	var p Principal
	p.ID, _ = store.Int64(rec, "id")
	p.Name, _ = store.String(rec, "name")
	p.Email, _ = store.String(rec, "email")
	p.Phone, _ = store.String(rec, "phone")
	p.Photo, _ = store.String(rec, "photo")
	p.RoleID, _ = store.Int64(rec, "roleId")
	return p
}
