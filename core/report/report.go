package report

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/user"
)

// CourseStats aggregates the enrollment state of a course.
// EnrolledCount is the stored counter, Enrollments the actual number of rows; they differ on drift.
type CourseStats struct {
	CourseID             string  `json:"course_id"`
	Title                string  `json:"title"`
	Status               string  `json:"status"`
	EnrolledCount        int     `json:"enrolled_count"`
	Enrollments          int     `json:"enrollments"`
	Grants               int     `json:"grants"`
	AverageProgress      float64 `json:"average_progress"`
	CompletedEnrollments int     `json:"completed_enrollments"`
}

func (cs CourseStats) Drifted() bool {
	return cs.EnrolledCount != cs.Enrollments
}

type (
	Repository interface {
		// CourseStats returns the stats of every course ordered by title.
		CourseStats(ctx context.Context) ([]CourseStats, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Courses is restricted to root.
func (svc *Service) Courses(ctx context.Context, actor user.User) ([]CourseStats, error) {
	if !(actor.IsActive && actor.IsRoot()) {
		return nil, core.ErrForbidden
	}
	stats, err := svc.repo.CourseStats(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "computing course stats")
	}
	if stats == nil {
		stats = []CourseStats{}
	}
	return stats, nil
}
