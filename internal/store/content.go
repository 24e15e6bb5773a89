package store

import (
	"context"

	"github.com/pavelanni/academy/internal/model"
)

// CreateModule inserts a course module.
func (s *Store) CreateModule(ctx context.Context, m model.Module) (int64, error) {
	return insert(ctx, s.db,
		`INSERT INTO modules (course_id, position, title, description) VALUES (?, ?, ?, ?) RETURNING id`,
		m.CourseID, m.Position, m.Title, m.Description)
}

// GetModule returns a module by ID, or nil.
func (s *Store) GetModule(ctx context.Context, id int64) (*model.Module, error) {
	return getOrNil[model.Module](ctx, s,
		`SELECT id, course_id, position, title, description FROM modules WHERE id = ?`, id)
}

// ListCourseModules returns the modules of a course in order.
func (s *Store) ListCourseModules(ctx context.Context, courseID int64) ([]model.Module, error) {
	var out []model.Module
	err := s.selectx(ctx, &out,
		`SELECT id, course_id, position, title, description FROM modules
		 WHERE course_id = ? ORDER BY position, id`, courseID)
	return out, err
}

// CreateContent inserts a content item into a module.
func (s *Store) CreateContent(ctx context.Context, c model.ContentItem) (int64, error) {
	return insert(ctx, s.db,
		`INSERT INTO contents (module_id, position, kind, title, body, url, file_key)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		c.ModuleID, c.Position, c.Kind, c.Title, c.Body, c.URL, c.FileKey)
}

// ListModuleContents returns the content items of a module in order.
func (s *Store) ListModuleContents(ctx context.Context, moduleID int64) ([]model.ContentItem, error) {
	var out []model.ContentItem
	err := s.selectx(ctx, &out,
		`SELECT id, module_id, position, kind, title, body, url, file_key FROM contents
		 WHERE module_id = ? ORDER BY position, id`, moduleID)
	return out, err
}
