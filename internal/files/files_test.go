package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveWritesUnderEntityDir(t *testing.T) {
	s := NewStorage(t.TempDir())

	up, err := s.Save("tasks", true, "image", "diagram.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if up.Field != "image" {
		t.Fatalf("unexpected field: %s", up.Field)
	}
	if !strings.HasSuffix(up.Name, ".png") {
		t.Fatalf("expected original extension kept, got %s", up.Name)
	}
	if up.Name == "diagram.png" {
		t.Fatal("expected a generated name, got the original")
	}
	if filepath.Dir(up.Path) != filepath.Join(s.Root(), "images", "tasks") {
		t.Fatalf("unexpected location: %s", up.Path)
	}
	data, err := os.ReadFile(up.Path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestGenericFilesLandInFilesDir(t *testing.T) {
	s := NewStorage(t.TempDir())

	up, err := s.Save("tasks", false, "file", "spec.pdf", strings.NewReader("pdf"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Dir(up.Path) != filepath.Join(s.Root(), "files", "tasks") {
		t.Fatalf("unexpected location: %s", up.Path)
	}
}

func TestDeleteByStoredName(t *testing.T) {
	s := NewStorage(t.TempDir())
	up, err := s.Save("users", true, "photo", "me.jpg", strings.NewReader("jpg"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := s.Delete("users", true, up.Name); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(up.Path); !os.IsNotExist(err) {
		t.Fatal("expected file removed")
	}

	// Absent files and empty names are not errors.
	if err := s.Delete("users", true, up.Name); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
	if err := s.Delete("users", true, ""); err != nil {
		t.Fatalf("empty name: %v", err)
	}
}

func TestCleanupRemovesAllUploads(t *testing.T) {
	s := NewStorage(t.TempDir())
	var ups Uploads
	for _, name := range []string{"a.png", "b.png"} {
		up, err := s.Save("tasks", true, "image", name, strings.NewReader("x"))
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		ups = append(ups, up)
	}

	s.Cleanup(ups)
	for _, up := range ups {
		if _, err := os.Stat(up.Path); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed", up.Path)
		}
	}
}

func TestUploadsForField(t *testing.T) {
	ups := Uploads{
		{Field: "image", Name: "one"},
		{Field: "file", Name: "two"},
		{Field: "image", Name: "three"},
	}
	up, ok := ups.ForField("image")
	if !ok || up.Name != "one" {
		t.Fatalf("expected first image upload, got %+v", up)
	}
	if ups.Has("missing") {
		t.Fatal("expected miss for unknown field")
	}
}
