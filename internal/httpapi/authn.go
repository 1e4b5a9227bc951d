package httpapi

import (
	"net/http"
	"strings"

	"backoffice.org/internal/apperr"
	"backoffice.org/internal/auth"
)

const authHeader = "Authorization"

var publicPaths = []string{
	"/healthz",
	"/readyz",
	"/metrics",
	"/openapi.yaml",
	"/",
}
var publicPrefixes = []string{
	"/api/auth/",
	"/public/",
}

// withAuth enforces the role/feature/privilege decision on every /api route.
// The feature namespace is the first path segment after /api; the HTTP
// method selects the privilege bit.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get(authHeader)
		principal, err := a.auth.Authenticate(r.Context(), header, featureOf(r.URL.Path), r.Method)
		if err != nil {
			writeAppError(w, r, err)
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, header)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// featureOf maps "/api/tasks/bulk" to the "tasks" feature namespace.
func featureOf(path string) string {
	rest := strings.TrimPrefix(path, "/api/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// requireUser re-validates the bearer token for the authenticated auth
// endpoints, which bypass the privilege check but not token verification or
// the revocation list.
func (a *API) requireUser(r *http.Request) (auth.Principal, error) {
	header := r.Header.Get(authHeader)
	principal, err := a.auth.Authenticate(r.Context(), header, "auth", r.Method)
	if err != nil {
		if apperr.IsClassified(err) {
			return auth.Principal{}, err
		}
		return auth.Principal{}, apperr.Unauthorized("Access Denied")
	}
	return principal, nil
}
