package inmemdb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/course"
	"github.com/trezcool/cursos/core/user"
	inmemdb "github.com/trezcool/cursos/storage/database/inmem"
	"github.com/trezcool/cursos/testutil"
)

func TestEnrollmentFlow(t *testing.T) {
	env, _ := testutil.NewInMemEnv()
	testutil.RunEnrollmentFlow(t, env)
}

func TestReconcileEnrolledCounts(t *testing.T) {
	env, db := testutil.NewInMemEnv()
	ctx := context.Background()
	root := testutil.CreateUser(t, env.Repos.Users, "Root", "root", "", "", user.RoleRoot, true)
	crs, _ := testutil.CreateCourse(t, env.CourseSvc, root, "Algebra", course.StatusPublished, 1)

	repo := inmemdb.NewEnrollmentRepository(db)
	repo.SetEnrolledCount(crs.ID, 4)

	n, err := repo.ReconcileEnrolledCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.ReconcileEnrolledCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := env.Repos.Courses.GetCourse(ctx, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.EnrolledCount)
}

func TestQueryCoursesOrdering(t *testing.T) {
	env, _ := testutil.NewInMemEnv()
	ctx := context.Background()
	root := testutil.CreateUser(t, env.Repos.Users, "Root", "root", "", "", user.RoleRoot, true)
	for _, title := range []string{"Biologia", "Algebra", "Química"} {
		testutil.CreateCourse(t, env.CourseSvc, root, title, course.StatusPublished, 0)
	}

	courses, err := env.Repos.Courses.QueryCourses(ctx, nil, []core.DBOrdering{{Field: "title"}})
	require.NoError(t, err)
	titles := make([]string, 0, len(courses))
	for _, c := range courses {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"Química", "Biologia", "Algebra"}, titles)
}

func TestDeleteCourseCascades(t *testing.T) {
	env, _ := testutil.NewInMemEnv()
	ctx := context.Background()
	root := testutil.CreateUser(t, env.Repos.Users, "Root", "root", "", "", user.RoleRoot, true)
	student := testutil.CreateUser(t, env.Repos.Users, "Ana", "ana", "", "", user.RoleStudent, true)
	crs, lessons := testutil.CreateCourse(t, env.CourseSvc, root, "Algebra", course.StatusPublished, 2)

	_, err := env.EnrollmentSvc.Grant(ctx, root, student.ID, crs.ID)
	require.NoError(t, err)
	require.NoError(t, env.CourseSvc.Delete(ctx, root, crs.ID))

	_, err = env.Repos.Courses.GetLesson(ctx, lessons[0].ID)
	assert.Equal(t, course.ErrLessonNotFound, err)
	_, err = env.Repos.Enrollments.GetGrant(ctx, student.ID, crs.ID)
	assert.True(t, core.IsNotFound(err))
	enrollments, err := env.EnrollmentSvc.QueryEnrollments(ctx, root, nil)
	require.NoError(t, err)
	assert.Empty(t, enrollments)
}
