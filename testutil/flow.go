package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cursos/core/course"
	"github.com/trezcool/cursos/core/enrollment"
	"github.com/trezcool/cursos/core/progress"
	"github.com/trezcool/cursos/core/user"
)

// RunEnrollmentFlow drives grants, enrollments, progress and reports through env's services.
// Storage packages run it against their own repositories.
func RunEnrollmentFlow(t *testing.T, env *Env) {
	t.Helper()
	ctx := context.Background()

	root := CreateUser(t, env.Repos.Users, "Root", "root", "root@test.local", "", user.RoleRoot, true)
	student := CreateUser(t, env.Repos.Users, "Ana", "ana", "ana@test.local", "", user.RoleStudent, true)
	crs, lessons := CreateCourse(t, env.CourseSvc, root, "Algebra", course.StatusPublished, 4)
	draft, _ := CreateCourse(t, env.CourseSvc, root, "Biologia", course.StatusDraft, 1)

	enrolledCount := func(id string) int {
		t.Helper()
		c, err := env.Repos.Courses.GetCourse(ctx, id)
		require.NoError(t, err)
		return c.EnrolledCount
	}

	// grants
	created, err := env.EnrollmentSvc.Grant(ctx, root, student.ID, crs.ID)
	require.NoError(t, err)
	assert.True(t, created)
	_, err = env.EnrollmentSvc.Grant(ctx, root, student.ID, crs.ID)
	assert.True(t, errors.Is(err, enrollment.ErrGrantExists), "got %v", err)
	created, err = env.EnrollmentSvc.Grant(ctx, root, student.ID, draft.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, enrolledCount(crs.ID))
	assert.Equal(t, 0, enrolledCount(draft.ID))

	created, err = env.EnrollmentSvc.SelfEnroll(ctx, student, "", crs.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, enrolledCount(crs.ID))

	// progress
	for i, l := range lessons {
		rp := progress.RecordProgress{CourseID: crs.ID, LessonID: l.ID, WatchedSeconds: 600, TotalSeconds: 600, IsCompleted: i < 3}
		if i == 3 {
			rp.WatchedSeconds = 90
		}
		require.NoError(t, env.ProgressSvc.Record(ctx, student, rp))
	}
	require.NoError(t, env.ProgressSvc.Record(ctx, student, progress.RecordProgress{
		CourseID: crs.ID,
		LessonID: progress.AssessmentPrefix + lessons[0].ID,
	}))
	// rewatching a completed lesson keeps it completed
	require.NoError(t, env.ProgressSvc.Record(ctx, student, progress.RecordProgress{
		CourseID: crs.ID, LessonID: lessons[0].ID, WatchedSeconds: 10, TotalSeconds: 600,
	}))

	sum, err := env.ProgressSvc.Get(ctx, student, "", crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, sum.Percentage)
	assert.Equal(t, 3, sum.CompletedLessons)
	assert.Equal(t, 4, sum.TotalLessons)
	assert.Len(t, sum.Progress, 4)
	assert.Len(t, sum.Assessments, 1)
	if len(sum.Progress) == 4 {
		assert.Equal(t, lessons[0].ID, sum.Progress[0].LessonID)
		assert.True(t, sum.Progress[0].IsCompleted)
		assert.True(t, sum.Progress[0].CompletedAt.Valid)
		assert.Equal(t, 10, sum.Progress[0].WatchedSeconds)
	}

	enrollments, err := env.EnrollmentSvc.QueryEnrollments(ctx, student, nil)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, 75.0, enrollments[0].ProgressPercentage)
	assert.False(t, enrollments[0].CompletedAt.Valid)
	assert.True(t, enrollments[0].LastAccessedAt.Valid)

	// revoke then re-grant restores the cached percentage
	removed, err := env.EnrollmentSvc.Revoke(ctx, root, student.ID, crs.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, enrolledCount(crs.ID))
	_, err = env.EnrollmentSvc.Revoke(ctx, root, student.ID, crs.ID)
	assert.True(t, errors.Is(err, enrollment.ErrGrantNotFound), "got %v", err)

	created, err = env.EnrollmentSvc.Grant(ctx, root, student.ID, crs.ID)
	require.NoError(t, err)
	assert.True(t, created)
	sum, err = env.ProgressSvc.Get(ctx, student, "", crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, sum.Percentage)

	// self-unenroll keeps the grant
	removed, err = env.EnrollmentSvc.SelfUnenroll(ctx, student, "", crs.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = env.EnrollmentSvc.SelfUnenroll(ctx, student, "", crs.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 0, enrolledCount(crs.ID))
	created, err = env.EnrollmentSvc.SelfEnroll(ctx, student, "", crs.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, enrolledCount(crs.ID))

	// reports
	stats, err := env.ReportSvc.Courses(ctx, root)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, crs.ID, stats[0].CourseID)
	assert.Equal(t, 1, stats[0].Enrollments)
	assert.Equal(t, 1, stats[0].Grants)
	assert.False(t, stats[0].Drifted())
	assert.Equal(t, 1, stats[1].Grants)

	n, err := env.EnrollmentSvc.Reconcile(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// deleting the student releases their seat
	deleted, err := env.UserSvc.Delete(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 0, enrolledCount(crs.ID))
}
