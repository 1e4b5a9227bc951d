package httpapi

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"backoffice.org/internal/apperr"
	"backoffice.org/internal/audit"
	"backoffice.org/internal/auth"
	"backoffice.org/internal/engine"
	"backoffice.org/internal/schema"
)

// handleCollection dispatches the base resource path: list, create, update
// and single delete all live here, ids travel in the body or the query.
func (a *API) handleCollection(w http.ResponseWriter, r *http.Request, res resource) {
	e := entityOf(res)
	switch r.Method {
	case http.MethodGet:
		result, err := a.engine.List(r.Context(), e, r.URL.Query())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case http.MethodPost:
		if res.readOnly {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.create(w, r, res, e)
	case http.MethodPatch:
		if res.readOnly {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.update(w, r, e)
	case http.MethodDelete:
		if res.readOnly {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.delete(w, r, e)
	default:
		if res.readOnly {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete)
	}
}

// handleSub dispatches sub-paths below the resource: /bulk, transition and
// flag toggles, and last the numeric id of a single read.
func (a *API) handleSub(w http.ResponseWriter, r *http.Request, res resource) {
	e := entityOf(res)
	suffix := strings.TrimPrefix(r.URL.Path, "/api/"+res.entity+"/")
	if suffix == "" || strings.Contains(suffix, "/") {
		writeError(w, r, http.StatusNotFound, "No API routes detected")
		return
	}

	if suffix == "bulk" && !res.readOnly {
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		a.bulkDelete(w, r, e)
		return
	}

	if field, ok := res.transitions[suffix]; ok {
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, r, http.MethodPatch)
			return
		}
		a.transition(w, r, e, field)
		return
	}

	for _, flag := range res.flags {
		if suffix == flag {
			if r.Method != http.MethodPatch {
				methodNotAllowed(w, r, http.MethodPatch)
				return
			}
			a.setFlag(w, r, e, flag, res.flagLabel)
			return
		}
	}

	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	rec, err := a.engine.GetOne(r.Context(), e, suffix)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) create(w http.ResponseWriter, r *http.Request, res resource, e *schema.Entity) {
	in, err := a.parseInput(r, e)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	principal, _ := auth.PrincipalFromContext(r.Context())
	if res.owner != "" {
		in.Body[res.owner] = strconv.FormatInt(principal.ID, 10)
	}
	rec, err := a.engine.Create(r.Context(), e, in, principal.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "record.created", map[string]any{"entity": e.Name})
	writeJSON(w, http.StatusCreated, rec)
}

func (a *API) update(w http.ResponseWriter, r *http.Request, e *schema.Entity) {
	in, err := a.parseInput(r, e)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	rec, err := a.engine.Update(r.Context(), e, bodyID(r, in), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "record.updated", map[string]any{"entity": e.Name})
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) delete(w http.ResponseWriter, r *http.Request, e *schema.Entity) {
	in, err := a.parseInput(r, e)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	admin, err := a.adminFor(r, e)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	rec, err := a.engine.Delete(r.Context(), e, bodyID(r, in), admin)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "record.deleted", map[string]any{"entity": e.Name})
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) bulkDelete(w http.ResponseWriter, r *http.Request, e *schema.Entity) {
	in, err := a.parseInput(r, e)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	rawIDs := in.Body["ids"]
	if rawIDs == "" {
		rawIDs = r.URL.Query().Get("ids")
	}
	admin, err := a.adminFor(r, e)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	recs, err := a.engine.BulkDelete(r.Context(), e, rawIDs, admin)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "record.bulk_deleted", map[string]any{
		"entity": e.Name,
		"count":  len(recs),
	})
	writeJSON(w, http.StatusOK, recs)
}

func (a *API) transition(w http.ResponseWriter, r *http.Request, e *schema.Entity, field string) {
	in, err := a.parseInput(r, e)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	principal, _ := auth.PrincipalFromContext(r.Context())
	rec, err := a.engine.Transition(r.Context(), e, field, bodyID(r, in), in.Body[field], principal.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "record.transitioned", map[string]any{
		"entity": e.Name,
		"field":  field,
	})
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) setFlag(w http.ResponseWriter, r *http.Request, e *schema.Entity, field, label string) {
	in, err := a.parseInput(r, e)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	rec, err := a.engine.SetFlag(r.Context(), e, field, bodyID(r, in), in.Body[field], label)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// adminFor runs the role allow-list check lazily: only entities that
// restrict deletion pay for the extra lookup.
func (a *API) adminFor(r *http.Request, e *schema.Entity) (bool, error) {
	if !e.AdminDelete {
		return false, nil
	}
	token, _ := auth.TokenFromContext(r.Context())
	return a.auth.IsAdmin(r.Context(), token)
}

// bodyID extracts the record id: body field first, then the id query
// parameter.
func bodyID(r *http.Request, in engine.Input) string {
	if id, ok := in.Body["id"]; ok && id != "" {
		return id
	}
	return r.URL.Query().Get("id")
}

// parseInput normalizes the three accepted payload shapes (multipart, JSON,
// urlencoded form) into the engine's flat input. Multipart attachments on
// declared file fields are streamed to storage before validation runs, so
// every later failure path must clean them up.
func (a *API) parseInput(r *http.Request, e *schema.Entity) (engine.Input, error) {
	in := engine.Input{Body: map[string]string{}}
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return in, nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType = ct
	}

	switch {
	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return in, apperr.BadRequest("Invalid multipart payload")
		}
		for key, vals := range r.MultipartForm.Value {
			if len(vals) > 0 {
				in.Body[key] = vals[0]
			}
		}
		for key, headers := range r.MultipartForm.File {
			field, ok := e.Field(key)
			if !ok || !field.IsFile() || len(headers) == 0 {
				continue
			}
			part, err := headers[0].Open()
			if err != nil {
				a.storage.Cleanup(in.Files)
				return in, apperr.BadRequest("Invalid multipart payload")
			}
			up, err := a.storage.Save(e.Name, field.ImageFile, key, headers[0].Filename, part)
			part.Close()
			if err != nil {
				a.storage.Cleanup(in.Files)
				return in, err
			}
			in.Files = append(in.Files, up)
		}
	case mediaType == "application/json":
		var raw map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return in, apperr.BadRequest("Invalid JSON payload")
		}
		for key, v := range raw {
			switch t := v.(type) {
			case string:
				in.Body[key] = t
			case json.Number:
				in.Body[key] = t.String()
			case bool:
				in.Body[key] = strconv.FormatBool(t)
			case nil:
				in.Body[key] = ""
			default:
				in.Body[key] = fmt.Sprint(t)
			}
		}
	default:
		if err := r.ParseForm(); err != nil {
			return in, apperr.BadRequest("Invalid form payload")
		}
		for key, vals := range r.PostForm {
			if len(vals) > 0 {
				in.Body[key] = vals[0]
			}
		}
	}
	return in, nil
}
