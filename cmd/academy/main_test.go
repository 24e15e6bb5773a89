package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/store/storetest"
)

func TestNormalizeBasePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"/", ""},
		{"academy", "/academy"},
		{"/academy/", "/academy"},
		{" /a/b ", "/a/b"},
	}
	for _, tt := range tests {
		if got := normalizeBasePath(tt.in); got != tt.want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnsureAdmin(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()

	if err := ensureAdmin(ctx, db, "", false); err == nil {
		t.Fatal("expected an error without a password on an empty database")
	}
	if err := ensureAdmin(ctx, db, "first", false); err != nil {
		t.Fatalf("ensureAdmin: %v", err)
	}
	if err := ensureAdmin(ctx, db, "", false); err != nil {
		t.Fatalf("second ensureAdmin should be a no-op: %v", err)
	}
	if err := ensureAdmin(ctx, db, "second", true); err != nil {
		t.Fatalf("reset: %v", err)
	}
	u, err := db.GetUserByUsername(ctx, "admin")
	if err != nil || u == nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u.Role != model.UserRoleAdmin {
		t.Errorf("role = %q", u.Role)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("second")) != nil {
		t.Error("password was not reset")
	}
	if n, _ := db.UserCount(ctx); n != 1 {
		t.Errorf("expected one user, got %d", n)
	}
}

func TestImportFilesAndExport(t *testing.T) {
	f := storetest.NewFixture(t)
	ctx := context.Background()
	bundle := `{
	  "course": {"slug": "go-101", "title": "Go 101"},
	  "academic_year": "2025-2026",
	  "exams": [{"title": "Final", "is_final": true, "is_active": true,
	    "start_time": "2026-01-10T09:00:00Z", "end_time": "2026-01-10T12:00:00Z",
	    "questions": [{"question_type": "TF", "text": "Maps are ordered", "max_score": 1}]}]
	}`
	path := filepath.Join(t.TempDir(), "go101.json")
	if err := os.WriteFile(path, []byte(bundle), 0o644); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := importFiles(ctx, f.Store, []string{path}); err != nil {
			t.Fatalf("importFiles: %v", err)
		}
	}
	exams, err := f.Store.ListCourseExams(ctx, f.CourseID, 0)
	if err != nil || len(exams) != 1 {
		t.Fatalf("expected the bundle imported once into the existing course, got %d exams (%v)", len(exams), err)
	}

	out, err := f.Store.ExportCourse(ctx, f.CourseID, 0)
	if err != nil {
		t.Fatalf("ExportCourse: %v", err)
	}
	var buf bytes.Buffer
	if err := writeExport(&buf, out); err != nil {
		t.Fatalf("writeExport: %v", err)
	}
	var decoded model.CourseExport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if decoded.Course.Slug != "go-101" || len(decoded.Exams) != 1 || len(decoded.Exams[0].Questions) != 1 {
		t.Fatalf("unexpected export: %+v", decoded)
	}
}
