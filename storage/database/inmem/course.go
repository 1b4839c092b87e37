package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[c.ID]; ok {
		return course.Course{}, core.NewConflictError("course already exists")
	}
	c.EnrolledCount = 0
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if filter != nil {
			if filter.Search != "" && !(containsFold(c.Title, filter.Search) || containsFold(c.Description, filter.Search)) {
				continue
			}
			if len(filter.Statuses) > 0 && !inSlice(c.Status, filter.Statuses) {
				continue
			}
		}
		courses = append(courses, *c)
	}

	orderBy(len(courses), func(i, j int) { courses[i], courses[j] = courses[j], courses[i] }, ordering, comparators{
		"title":          func(i, j int) int { return strings.Compare(courses[i].Title, courses[j].Title) },
		"status":         func(i, j int) int { return strings.Compare(courses[i].Status, courses[j].Status) },
		"enrolled_count": func(i, j int) int { return cmpInt(courses[i].EnrolledCount, courses[j].EnrolledCount) },
		"created_at":     func(i, j int) int { return cmpTime(courses[i].CreatedAt, courses[j].CreatedAt) },
	}, "created_at")
	return courses, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.courses[c.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	orig.Title = c.Title
	orig.Description = c.Description
	orig.Status = c.Status
	orig.UpdatedAt = c.UpdatedAt
	return *orig, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.courses, id)

	// ON DELETE CASCADE
	for lid, l := range repo.db.lessons {
		if l.CourseID == id {
			repo.db.deleteLesson(lid)
		}
	}
	for k := range repo.db.grants {
		if k.b == id {
			delete(repo.db.grants, k)
		}
	}
	for k := range repo.db.enrollments {
		if k.b == id {
			delete(repo.db.enrollments, k)
		}
	}
	return nil
}

func (repo *courseRepository) CreateLesson(_ context.Context, l course.Lesson) (course.Lesson, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[l.CourseID]; !ok {
		return course.Lesson{}, course.ErrNotFound
	}
	repo.db.lessons[l.ID] = &l
	return l, nil
}

func (repo *courseRepository) QueryLessons(_ context.Context, courseID string) ([]course.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.courseLessons(courseID), nil
}

func (repo *courseRepository) GetLesson(_ context.Context, id string) (course.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if l, ok := repo.db.lessons[id]; ok {
		return *l, nil
	}
	return course.Lesson{}, course.ErrLessonNotFound
}

func (repo *courseRepository) UpdateLesson(_ context.Context, l course.Lesson) (course.Lesson, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.lessons[l.ID]; !ok {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	repo.db.lessons[l.ID] = &l
	return l, nil
}

func (repo *courseRepository) DeleteLesson(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.lessons[id]; !ok {
		return course.ErrLessonNotFound
	}
	repo.db.deleteLesson(id)
	return nil
}

// courseLessons must be called with the lock held.
func (db *DB) courseLessons(courseID string) []course.Lesson {
	lessons := make([]course.Lesson, 0)
	for _, l := range db.lessons {
		if l.CourseID == courseID {
			lessons = append(lessons, *l)
		}
	}
	orderBy(len(lessons), func(i, j int) { lessons[i], lessons[j] = lessons[j], lessons[i] }, []core.DBOrdering{
		{Field: "position", Ascending: true}, {Field: "created_at", Ascending: true},
	}, comparators{
		"position":   func(i, j int) int { return cmpInt(lessons[i].Position, lessons[j].Position) },
		"created_at": func(i, j int) int { return cmpTime(lessons[i].CreatedAt, lessons[j].CreatedAt) },
	}, "position")
	return lessons
}

// deleteLesson must be called with the write lock held.
func (db *DB) deleteLesson(id string) {
	delete(db.lessons, id)
	for k := range db.progress {
		if k.b == id {
			delete(db.progress, k)
		}
	}
	for k := range db.assessments {
		if k.b == id {
			delete(db.assessments, k)
		}
	}
}
