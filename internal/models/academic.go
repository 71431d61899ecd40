package models

// Academic catalogue: class → subject → chapter.
type AcademicClass struct {
	ID       string            `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Subjects []AcademicSubject `json:"subjects" yaml:"subjects"`
}

type AcademicSubject struct {
	ID       string            `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Chapters []AcademicChapter `json:"chapters" yaml:"chapters"`
}

type AcademicChapter struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// ExamScopeRequest selects either an academic chapter or a quiz category.
type ExamScopeRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=chapter category"`
	ClassID    string `json:"class_id" validate:"required_if=Kind chapter"`
	SubjectID  string `json:"subject_id" validate:"required_if=Kind chapter"`
	ChapterID  string `json:"chapter_id" validate:"required_if=Kind chapter"`
	CategoryID string `json:"category_id" validate:"required_if=Kind category"`
}

type SelectOptionRequest struct {
	Option int `json:"option" validate:"min=0"`
}
