package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"backoffice.org/internal/apperr"
	"backoffice.org/internal/audit"
	"backoffice.org/internal/auth"
	"backoffice.org/internal/engine"
	"backoffice.org/internal/schema"
	"backoffice.org/internal/store"
)

// defaultRoleID is assigned to self-registered accounts.
const defaultRoleID = "3"

func (a *API) registerAuthRoutes() {
	a.mux.HandleFunc("/api/auth/register", a.Register)
	a.mux.Handle("/api/auth/login", RateLimitPerMinute(http.HandlerFunc(a.Login), a.loginRPM))
	a.mux.Handle("/api/auth/password/verify", RateLimitPerMinute(http.HandlerFunc(a.VerifyPasswordReset), a.loginRPM))
	a.mux.HandleFunc("/api/auth/password/forgot", a.ForgotPassword)
	a.mux.HandleFunc("/api/auth/password/update", a.UpdatePassword)
	a.mux.HandleFunc("/api/auth/refresh", a.Refresh)
	a.mux.HandleFunc("/api/auth/logout", a.Logout)
	a.mux.HandleFunc("/api/auth", a.Me)
	a.mux.HandleFunc("/api/auth/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "No API routes detected")
	})
}

// requireFields reports the missing body fields as one 400 in declaration
// order.
func requireFields(in engine.Input, fields ...string) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(in.Body[f]) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return apperr.BadRequest(strings.Join(missing, ", ") + " required")
	}
	return nil
}

// sessionPayload is the principal plus a fresh bearer token.
func sessionPayload(p auth.Principal, token string) map[string]any {
	return map[string]any{
		"id":    p.ID,
		"name":  p.Name,
		"email": p.Email,
		"phone": p.Phone,
		"photo": p.Photo,
		"token": token,
	}
}

// Register creates a self-service account with the default role.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	e := schema.MustLookup("users")
	in, err := a.parseInput(r, e)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	in.Body["role"] = defaultRoleID
	rec, err := a.engine.Create(r.Context(), e, in, 0)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "auth.registered", map[string]any{"email": in.Body["email"]})
	writeJSON(w, http.StatusCreated, rec)
}

// Login verifies credentials and issues a session token.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	in, err := a.parseInput(r, schema.MustLookup("users"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := requireFields(in, "email", "password"); err != nil {
		writeAppError(w, r, err)
		return
	}
	principal, err := a.auth.Login(r.Context(), in.Body["email"], in.Body["password"])
	if err != nil {
		audit.LogEvent(r.Context(), "auth.login_failed", map[string]any{"email": in.Body["email"]})
		writeAppError(w, r, err)
		return
	}
	token, err := a.auth.Tokens().GenerateSession(principal)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "auth.login", map[string]any{"email": principal.Email})
	writeJSON(w, http.StatusCreated, sessionPayload(principal, token))
}

// VerifyPasswordReset issues a short-lived token for the password reset
// flow. Delivery is handled out of process; the reset link lands in the
// audit stream for the mail relay to pick up.
func (a *API) VerifyPasswordReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	in, err := a.parseInput(r, schema.MustLookup("users"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := requireFields(in, "email"); err != nil {
		writeAppError(w, r, err)
		return
	}
	user, err := a.gw.FindFirst(r.Context(), "users", store.Filter{
		Equals: map[string]any{"email": in.Body["email"]},
	})
	if err != nil {
		writeError(w, r, http.StatusNotFound, "User not found")
		return
	}
	id, _ := store.Int64(user, "id")
	name, _ := store.String(user, "name")
	email, _ := store.String(user, "email")
	token, err := a.auth.Tokens().GenerateShort(auth.Principal{ID: id, Name: name, Email: email})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "auth.password_reset_requested", map[string]any{
		"email": email,
		"link":  "/reset-password?token=" + token,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Reset password email sent successfully",
	})
}

// ForgotPassword sets a new password from a verified reset token.
func (a *API) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	principal, err := a.requireUser(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	in, err := a.parseInput(r, schema.MustLookup("users"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := requireFields(in, "password"); err != nil {
		writeAppError(w, r, err)
		return
	}
	a.rotatePassword(w, r, principal, in.Body["password"])
}

// UpdatePassword changes the password after checking the current one.
func (a *API) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	principal, err := a.requireUser(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	in, err := a.parseInput(r, schema.MustLookup("users"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := requireFields(in, "oldPassword", "password"); err != nil {
		writeAppError(w, r, err)
		return
	}
	user, err := a.gw.FindUnique(r.Context(), "users", principal.ID, nil)
	if err != nil {
		writeAppError(w, r, storeErrToApp(err))
		return
	}
	hash, _ := store.String(user, "password")
	if err := auth.VerifyPassword(hash, in.Body["oldPassword"]); err != nil {
		writeError(w, r, http.StatusUnauthorized, "Invalid old password")
		return
	}
	a.rotatePassword(w, r, principal, in.Body["password"])
}

// rotatePassword persists the new hash, revokes the presented token and
// issues a fresh session.
func (a *API) rotatePassword(w http.ResponseWriter, r *http.Request, principal auth.Principal, password string) {
	hashed, err := auth.HashPassword(password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if _, err := a.gw.Update(r.Context(), "users", principal.ID, store.Record{"password": hashed}); err != nil {
		writeAppError(w, r, storeErrToApp(err))
		return
	}
	if err := a.auth.Revoke(r.Context(), r.Header.Get(authHeader)); err != nil {
		writeAppError(w, r, err)
		return
	}
	token, err := a.auth.Tokens().GenerateSession(principal)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "auth.password_changed", map[string]any{"email": principal.Email})
	writeJSON(w, http.StatusOK, sessionPayload(principal, token))
}

// Me returns the authenticated user's record with the role joined.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, err := a.requireUser(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	user, err := a.gw.FindUnique(r.Context(), "users", principal.ID, []string{"role"})
	if err != nil {
		writeAppError(w, r, storeErrToApp(err))
		return
	}
	// The stored hash never leaves the process.
	sanitized := store.Record{}
	for k, v := range user {
		if k == "password" {
			continue
		}
		sanitized[k] = v
	}
	writeJSON(w, http.StatusOK, sanitized)
}

// Refresh rotates the session token: the presented one is revoked first.
func (a *API) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, err := a.requireUser(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := a.auth.Revoke(r.Context(), r.Header.Get(authHeader)); err != nil {
		writeAppError(w, r, err)
		return
	}
	token, err := a.auth.Tokens().GenerateSession(principal)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionPayload(principal, token))
}

// Logout revokes the presented token.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, err := a.requireUser(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if err := a.auth.Revoke(r.Context(), r.Header.Get(authHeader)); err != nil {
		writeAppError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "auth.logout", map[string]any{"email": principal.Email})
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      principal.ID,
		"name":    principal.Name,
		"email":   principal.Email,
		"phone":   principal.Phone,
		"photo":   principal.Photo,
		"message": "logout successful",
	})
}

// storeErrToApp classifies raw gateway failures at the boundary.
func storeErrToApp(err error) error {
	if apperr.IsClassified(err) {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	return err
}
