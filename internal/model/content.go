package model

// ContentKind tags the payload carried by a ContentItem.
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentVideo    ContentKind = "video"
	ContentImage    ContentKind = "image"
	ContentFile     ContentKind = "file"
	ContentExercise ContentKind = "exercise"
)

// Valid reports whether k is a known content kind.
func (k ContentKind) Valid() bool {
	switch k {
	case ContentText, ContentVideo, ContentImage, ContentFile, ContentExercise:
		return true
	}
	return false
}

// Module is an ordered section of a course.
type Module struct {
	ID          int64  `db:"id" json:"id"`
	CourseID    int64  `db:"course_id" json:"course_id"`
	Position    int    `db:"position" json:"position"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
}

// ContentItem is one piece of module content. Kind selects which of
// Body, URL or FileKey is meaningful.
type ContentItem struct {
	ID       int64       `db:"id" json:"id"`
	ModuleID int64       `db:"module_id" json:"module_id"`
	Position int         `db:"position" json:"position"`
	Kind     ContentKind `db:"kind" json:"kind"`
	Title    string      `db:"title" json:"title"`
	Body     string      `db:"body" json:"body,omitempty"`
	URL      string      `db:"url" json:"url,omitempty"`
	FileKey  string      `db:"file_key" json:"file_key,omitempty"`
}
