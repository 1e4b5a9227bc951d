// Package files is the file-storage collaborator: multipart attachments are
// written under generated collision-free names, and failed requests clean up
// whatever they already wrote.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"backoffice.org/internal/obs"
)

// Upload is one file already written to storage for the current request.
type Upload struct {
	Field string // form field name
	Name  string // stored file name (persisted value)
	Path  string // absolute location on disk
}

// Uploads is the request's uploaded-file collection.
type Uploads []Upload

// ForField returns the first upload submitted under the field name.
func (u Uploads) ForField(field string) (Upload, bool) {
	for _, f := range u {
		if f.Field == field {
			return f, true
		}
	}
	return Upload{}, false
}

// Has reports whether any upload was submitted under the field name.
func (u Uploads) Has(field string) bool {
	_, ok := u.ForField(field)
	return ok
}

// Storage writes and removes stored files below a root directory, split into
// images/<entity> and files/<entity> like the upload middleware expects.
type Storage struct {
	root string
}

func NewStorage(root string) *Storage {
	return &Storage{root: root}
}

// Root exposes the storage root for static file serving.
func (s *Storage) Root() string { return s.root }

func (s *Storage) dir(entity string, image bool) string {
	kind := "files"
	if image {
		kind = "images"
	}
	return filepath.Join(s.root, kind, entity)
}

// uniqueName builds a collision-free stored name: uuid, then a timestamp,
// then the original extension.
func uniqueName(original string) string {
	ext := filepath.Ext(original)
	return uuid.NewString() + "." + strconv.FormatInt(time.Now().UnixMilli(), 10) + ext
}

// Save streams one attachment to disk under a generated unique name.
func (s *Storage) Save(entity string, image bool, field, original string, r io.Reader) (Upload, error) {
	dir := s.dir(entity, image)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Upload{}, fmt.Errorf("create upload dir: %w", err)
	}
	name := uniqueName(original)
	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return Upload{}, fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return Upload{}, fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return Upload{}, err
	}
	return Upload{Field: field, Name: name, Path: path}, nil
}

// Delete removes a stored file by its persisted name. A file already absent
// on disk is not an error.
func (s *Storage) Delete(entity string, image bool, name string) error {
	if name == "" {
		return nil
	}
	path := filepath.Join(s.dir(entity, image), name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(path)
}

// Cleanup removes every upload written during a failed request. Failures are
// logged, not propagated: cleanup must never mask the original error.
func (s *Storage) Cleanup(uploads Uploads) {
	for _, f := range uploads {
		if f.Path == "" {
			continue
		}
		if _, err := os.Stat(f.Path); os.IsNotExist(err) {
			continue
		}
		if err := os.Remove(f.Path); err != nil {
			obs.LogRequest(map[string]any{
				"level": "error",
				"msg":   "upload cleanup failed",
				"path":  f.Path,
				"error": err.Error(),
			})
		}
	}
}
