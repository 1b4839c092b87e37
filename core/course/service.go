package course

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("course")
	ErrLessonNotFound = core.NewNotFoundError("lesson")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		// UpdateCourse never writes enrolled_count, the enrollment repository owns it.
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, l Lesson) (Lesson, error)
		// QueryLessons returns the lessons of a course ordered by position.
		QueryLessons(ctx context.Context, courseID string) ([]Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		UpdateLesson(ctx context.Context, l Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CanManage tells whether actor may write courses: admin rank in the courses hierarchy or the capability flag.
func CanManage(actor user.User) bool {
	return user.Authorize(actor, user.RoleAdmin, user.CoursesHierarchy) ||
		(actor.IsActive && actor.CanManage(user.SubsystemCourses))
}

func (svc *Service) Create(ctx context.Context, actor user.User, nc NewCourse) (Course, error) {
	if !CanManage(actor) {
		return Course{}, core.ErrForbidden
	}
	status := nc.Status
	if status == "" {
		status = StatusDraft
	}
	now := time.Now().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		ID:          uuid.New().String(),
		Title:       nc.Title,
		Description: nc.Description,
		Status:      status,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// Query lists courses. Actors who cannot manage courses only see published ones.
func (svc *Service) Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if !CanManage(actor) {
		filter.Statuses = []string{StatusPublished}
	}
	ordering = core.CleanOrderings(ordering, "title", "status", "enrolled_count", "created_at")
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

// Get hides unpublished courses from actors who cannot manage them.
func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if !c.IsPublished() && !CanManage(actor) {
		return Course{}, ErrNotFound
	}
	return c, nil
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, uc UpdateCourse) (Course, error) {
	if !CanManage(actor) {
		return Course{}, core.ErrForbidden
	}
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if uc.Title != nil {
		c.Title = *uc.Title
	}
	if uc.Description != nil {
		c.Description = *uc.Description
	}
	if uc.Status != "" {
		c.Status = uc.Status
	}
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	if !CanManage(actor) {
		return core.ErrForbidden
	}
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *Service) AddLesson(ctx context.Context, actor user.User, courseID string, nl NewLesson) (Lesson, error) {
	if !CanManage(actor) {
		return Lesson{}, core.ErrForbidden
	}
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Lesson{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateLesson(ctx, Lesson{
		ID:              uuid.New().String(),
		CourseID:        courseID,
		Title:           nl.Title,
		VideoURL:        nl.VideoURL,
		DurationSeconds: nl.DurationSeconds,
		Position:        nl.Position,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

func (svc *Service) Lessons(ctx context.Context, actor user.User, courseID string) ([]Lesson, error) {
	if _, err := svc.Get(ctx, actor, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryLessons(ctx, courseID)
}

// Lesson returns a lesson only if it belongs to courseID.
func (svc *Service) Lesson(ctx context.Context, courseID, lessonID string) (Lesson, error) {
	l, err := svc.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return Lesson{}, err
	}
	if l.CourseID != courseID {
		return Lesson{}, ErrLessonNotFound
	}
	return l, nil
}

func (svc *Service) UpdateLesson(ctx context.Context, actor user.User, courseID, lessonID string, ul UpdateLesson) (Lesson, error) {
	if !CanManage(actor) {
		return Lesson{}, core.ErrForbidden
	}
	l, err := svc.Lesson(ctx, courseID, lessonID)
	if err != nil {
		return Lesson{}, errors.Wrap(err, "finding lesson")
	}
	if ul.Title != nil {
		l.Title = *ul.Title
	}
	if ul.VideoURL != nil {
		l.VideoURL = *ul.VideoURL
	}
	if ul.DurationSeconds != nil {
		l.DurationSeconds = *ul.DurationSeconds
	}
	if ul.Position != nil {
		l.Position = *ul.Position
	}
	l.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLesson(ctx, l)
}

func (svc *Service) DeleteLesson(ctx context.Context, actor user.User, courseID, lessonID string) error {
	if !CanManage(actor) {
		return core.ErrForbidden
	}
	if _, err := svc.Lesson(ctx, courseID, lessonID); err != nil {
		return errors.Wrap(err, "finding lesson")
	}
	return svc.repo.DeleteLesson(ctx, lessonID)
}
