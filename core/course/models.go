package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/cursos/core"
)

// Course statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

type (
	Course struct {
		ID            string    `json:"id"`
		Title         string    `json:"title"`
		Description   string    `json:"description"`
		Status        string    `json:"status"`
		EnrolledCount int       `json:"enrolled_count"`
		CreatedBy     string    `json:"created_by"`
		CreatedAt     time.Time `json:"created_at"` // UTC
		UpdatedAt     time.Time `json:"updated_at"` // UTC
	}

	Lesson struct {
		ID              string    `json:"id"`
		CourseID        string    `json:"course_id"`
		Title           string    `json:"title"`
		VideoURL        string    `json:"video_url"`
		DurationSeconds int       `json:"duration_seconds"`
		Position        int       `json:"position"`
		CreatedAt       time.Time `json:"created_at"` // UTC
		UpdatedAt       time.Time `json:"updated_at"` // UTC
	}
)

func (c Course) IsPublished() bool {
	return c.Status == StatusPublished
}

type NewCourse struct {
	Title       string `json:"title" validate:"required,notblank,max=255"`
	Description string `json:"description"`
	Status      string `json:"status" validate:"omitempty,oneof=draft published archived"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Status = core.CleanString(nc.Status, true /* lower */)
	return validate.Struct(nc)
}

// UpdateCourse only overwrites the provided fields.
type UpdateCourse struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=255"`
	Description *string `json:"description"`
	Status      string  `json:"status" validate:"omitempty,oneof=draft published archived"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	if uc.Title != nil {
		title := core.CleanString(*uc.Title)
		uc.Title = &title
	}
	if uc.Description != nil {
		desc := core.CleanString(*uc.Description)
		uc.Description = &desc
	}
	uc.Status = core.CleanString(uc.Status, true /* lower */)
	return validate.Struct(uc)
}

type NewLesson struct {
	Title           string `json:"title" validate:"required,notblank,max=255"`
	VideoURL        string `json:"video_url" validate:"omitempty,url"`
	DurationSeconds int    `json:"duration_seconds" validate:"min=0"`
	Position        int    `json:"position" validate:"min=0"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.VideoURL = core.CleanString(nl.VideoURL)
	return validate.Struct(nl)
}

type UpdateLesson struct {
	Title           *string `json:"title" validate:"omitempty,notblank,max=255"`
	VideoURL        *string `json:"video_url" validate:"omitempty,url"`
	DurationSeconds *int    `json:"duration_seconds" validate:"omitempty,min=0"`
	Position        *int    `json:"position" validate:"omitempty,min=0"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	if ul.Title != nil {
		title := core.CleanString(*ul.Title)
		ul.Title = &title
	}
	if ul.VideoURL != nil {
		u := core.CleanString(*ul.VideoURL)
		ul.VideoURL = &u
	}
	return validate.Struct(ul)
}

type QueryFilter struct {
	Search   string   `query:"search"`
	Statuses []string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	for i, s := range qf.Statuses {
		qf.Statuses[i] = core.CleanString(s, true /* lower */)
	}
}
