package inmemdb

import (
	"context"

	"github.com/trezcool/cursos/core/course"
	"github.com/trezcool/cursos/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) GetGrant(_ context.Context, userID, courseID string) (enrollment.Grant, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if g, ok := repo.db.grants[pair{userID, courseID}]; ok {
		return *g, nil
	}
	return enrollment.Grant{}, enrollment.ErrGrantNotFound
}

func (repo *enrollmentRepository) QueryGrants(_ context.Context, filter *enrollment.QueryFilter) ([]enrollment.Grant, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	grants := make([]enrollment.Grant, 0)
	for k, g := range repo.db.grants {
		if filter != nil && !matchPair(k, filter) {
			continue
		}
		grants = append(grants, *g)
	}
	orderBy(len(grants), func(i, j int) { grants[i], grants[j] = grants[j], grants[i] }, nil, comparators{
		"granted_at": func(i, j int) int { return cmpTime(grants[i].GrantedAt, grants[j].GrantedAt) },
	}, "granted_at")
	return grants, nil
}

func (repo *enrollmentRepository) CreateGrant(_ context.Context, g enrollment.Grant) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := pair{g.UserID, g.CourseID}
	if _, ok := repo.db.grants[key]; ok {
		return false, enrollment.ErrGrantExists
	}
	c, ok := repo.db.courses[g.CourseID]
	if !ok {
		return false, course.ErrNotFound
	}
	repo.db.grants[key] = &g

	if !c.IsPublished() {
		return false, nil
	}
	return repo.db.enroll(enrollment.Enrollment{UserID: g.UserID, CourseID: g.CourseID, EnrolledAt: g.GrantedAt}), nil
}

func (repo *enrollmentRepository) DeleteGrant(_ context.Context, userID, courseID string) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := pair{userID, courseID}
	if _, ok := repo.db.grants[key]; !ok {
		return false, enrollment.ErrGrantNotFound
	}
	delete(repo.db.grants, key)
	return repo.db.unenroll(userID, courseID), nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, userID, courseID string) (enrollment.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if e, ok := repo.db.enrollments[pair{userID, courseID}]; ok {
		return *e, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotEnrolled
}

func (repo *enrollmentRepository) QueryEnrollments(_ context.Context, filter *enrollment.QueryFilter) ([]enrollment.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrollments := make([]enrollment.Enrollment, 0)
	for k, e := range repo.db.enrollments {
		if filter != nil && !matchPair(k, filter) {
			continue
		}
		enrollments = append(enrollments, *e)
	}
	orderBy(len(enrollments), func(i, j int) { enrollments[i], enrollments[j] = enrollments[j], enrollments[i] }, nil, comparators{
		"enrolled_at": func(i, j int) int { return cmpTime(enrollments[i].EnrolledAt, enrollments[j].EnrolledAt) },
	}, "enrolled_at")
	return enrollments, nil
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, e enrollment.Enrollment) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[e.CourseID]; !ok {
		return false, course.ErrNotFound
	}
	return repo.db.enroll(e), nil
}

func (repo *enrollmentRepository) DeleteEnrollment(_ context.Context, userID, courseID string) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.db.unenroll(userID, courseID), nil
}

func (repo *enrollmentRepository) ReconcileEnrolledCounts(_ context.Context) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	counts := make(map[string]int, len(repo.db.courses))
	for k := range repo.db.enrollments {
		counts[k.b]++
	}
	var fixed int
	for id, c := range repo.db.courses {
		if c.EnrolledCount != counts[id] {
			c.EnrolledCount = counts[id]
			fixed++
		}
	}
	return fixed, nil
}

// SetEnrolledCount overwrites a course counter, simulating drift in tests.
func (repo *enrollmentRepository) SetEnrolledCount(courseID string, n int) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	if c, ok := repo.db.courses[courseID]; ok {
		c.EnrolledCount = n
	}
}

func matchPair(k pair, filter *enrollment.QueryFilter) bool {
	return (filter.UserID == "" || k.a == filter.UserID) && (filter.CourseID == "" || k.b == filter.CourseID)
}

// enroll must be called with the write lock held.
func (db *DB) enroll(e enrollment.Enrollment) bool {
	key := pair{e.UserID, e.CourseID}
	if _, ok := db.enrollments[key]; ok {
		return false
	}
	db.enrollments[key] = &e
	if c, ok := db.courses[e.CourseID]; ok {
		c.EnrolledCount++
	}
	return true
}

// unenroll must be called with the write lock held.
func (db *DB) unenroll(userID, courseID string) bool {
	key := pair{userID, courseID}
	if _, ok := db.enrollments[key]; !ok {
		return false
	}
	delete(db.enrollments, key)
	db.decrementEnrolled(courseID)
	return true
}

func (db *DB) decrementEnrolled(courseID string) {
	if c, ok := db.courses[courseID]; ok && c.EnrolledCount > 0 {
		c.EnrolledCount--
	}
}
