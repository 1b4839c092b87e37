package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cursos/core/course"
	"github.com/trezcool/cursos/core/user"
	"github.com/trezcool/cursos/testutil"
)

func watch(courseID, lessonID string, watched int, completed bool) obj {
	return obj{
		"course_id":       courseID,
		"lesson_id":       lessonID,
		"watched_seconds": watched,
		"total_seconds":   600,
		"is_completed":    completed,
	}
}

// cachedPercentage reads progress_percentage from the enrollment of usr in courseID.
func (f *fixture) cachedPercentage(t *testing.T, token, userID, courseID string) float64 {
	t.Helper()
	code, res := f.do(t, http.MethodGet, "/v1/enrollments?user_id="+userID+"&course_id="+courseID, token, nil)
	require.Equal(t, http.StatusOK, code)
	enrollments := list(res, "enrollments")
	require.Len(t, enrollments, 1)
	e, _ := enrollments[0].(map[string]interface{})
	pct, _ := e["progress_percentage"].(float64)
	return pct
}

func TestRecordProgressRequiresAuth(t *testing.T) {
	f := setup(t)
	code, res := f.do(t, http.MethodPost, "/v1/progress", "", obj{"course_id": "c", "lesson_id": "l"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, true, res["error"])
}

func TestProgressMethodNotAllowed(t *testing.T) {
	f := setup(t)
	root := f.createUser(t, "rooty", user.RoleRoot)

	code, res := f.do(t, http.MethodPut, "/v1/progress", f.token(t, root), obj{})
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, true, res["error"])
}

func TestProgressPercentage(t *testing.T) {
	f := setup(t)
	root := f.createUser(t, "rooty", user.RoleRoot)
	student := f.createUser(t, "student", user.RoleStudent)
	crs, lessons := testutil.CreateCourse(t, f.env.CourseSvc, root, "Algebra", course.StatusPublished, 4)

	_, err := f.env.EnrollmentSvc.Grant(testCtx(t), root, student.ID, crs.ID)
	require.NoError(t, err)

	token := f.token(t, student)
	for _, l := range lessons[:3] {
		code, res := f.do(t, http.MethodPost, "/v1/progress", token, watch(crs.ID, l.ID, 600, true))
		require.Equal(t, http.StatusOK, code, "response: %v", res)
		assert.Equal(t, false, res["error"])
	}
	code, _ := f.do(t, http.MethodPost, "/v1/progress", token, watch(crs.ID, lessons[3].ID, 120, false))
	require.Equal(t, http.StatusOK, code)

	code, res := f.do(t, http.MethodGet, "/v1/progress?course_id="+crs.ID, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 75.0, res["percentage"])
	assert.Equal(t, float64(3), res["completed_lessons"])
	assert.Equal(t, float64(4), res["total_lessons"])

	rows := list(res, "progress")
	if assert.Len(t, rows, 4) {
		last, _ := rows[3].(map[string]interface{})
		assert.Equal(t, lessons[3].ID, last["lesson_id"])
		assert.Equal(t, float64(120), last["watched_seconds"])
		assert.Equal(t, false, last["is_completed"])
		assert.Nil(t, last["completed_at"])
	}
	assert.Equal(t, 75.0, f.cachedPercentage(t, token, student.ID, crs.ID))

	// completing the last lesson completes the enrollment
	code, _ = f.do(t, http.MethodPost, "/v1/progress", token, watch(crs.ID, lessons[3].ID, 600, true))
	require.Equal(t, http.StatusOK, code)
	code, res = f.do(t, http.MethodGet, "/v1/progress?course_id="+crs.ID, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 100.0, res["percentage"])

	code, res = f.do(t, http.MethodGet, "/v1/enrollments?course_id="+crs.ID, token, nil)
	require.Equal(t, http.StatusOK, code)
	if enrollments := list(res, "enrollments"); assert.Len(t, enrollments, 1) {
		e, _ := enrollments[0].(map[string]interface{})
		assert.Equal(t, 100.0, e["progress_percentage"])
		assert.NotNil(t, e["completed_at"])
	}
}

func TestProgressCompletionIsMonotonic(t *testing.T) {
	f := setup(t)
	root := f.createUser(t, "rooty", user.RoleRoot)
	student := f.createUser(t, "student", user.RoleStudent)
	crs, lessons := testutil.CreateCourse(t, f.env.CourseSvc, root, "Algebra", course.StatusPublished, 2)
	token := f.token(t, student)

	code, _ := f.do(t, http.MethodPost, "/v1/progress", token, watch(crs.ID, lessons[0].ID, 600, true))
	require.Equal(t, http.StatusOK, code)

	_, res := f.do(t, http.MethodGet, "/v1/progress?course_id="+crs.ID, token, nil)
	first, _ := list(res, "progress")[0].(map[string]interface{})
	completedAt := first["completed_at"]
	require.NotNil(t, completedAt)

	// rewatching from the start keeps the completion
	code, _ = f.do(t, http.MethodPost, "/v1/progress", token, watch(crs.ID, lessons[0].ID, 30, false))
	require.Equal(t, http.StatusOK, code)

	code, res = f.do(t, http.MethodGet, "/v1/progress?course_id="+crs.ID, token, nil)
	require.Equal(t, http.StatusOK, code)
	row, _ := list(res, "progress")[0].(map[string]interface{})
	assert.Equal(t, true, row["is_completed"])
	assert.Equal(t, completedAt, row["completed_at"])
	assert.Equal(t, float64(30), row["watched_seconds"])
	assert.Equal(t, 50.0, res["percentage"])
}

func TestProgressSurvivesRevoke(t *testing.T) {
	f := setup(t)
	root := f.createUser(t, "rooty", user.RoleRoot)
	student := f.createUser(t, "student", user.RoleStudent)
	crs, lessons := testutil.CreateCourse(t, f.env.CourseSvc, root, "Algebra", course.StatusPublished, 2)
	token := f.token(t, student)
	rootToken := f.token(t, root)
	grant := obj{"user_id": student.ID, "course_id": crs.ID}

	code, _ := f.do(t, http.MethodPost, "/v1/permissions", rootToken, grant)
	require.Equal(t, http.StatusCreated, code)
	code, _ = f.do(t, http.MethodPost, "/v1/progress", token, watch(crs.ID, lessons[0].ID, 600, true))
	require.Equal(t, http.StatusOK, code)

	code, res := f.do(t, http.MethodDelete, "/v1/permissions", rootToken, grant)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, res["enrollment_removed"])

	code, res = f.do(t, http.MethodPost, "/v1/permissions", rootToken, grant)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, res["enrollment_created"])

	code, res = f.do(t, http.MethodGet, "/v1/progress?course_id="+crs.ID, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 50.0, res["percentage"])
	assert.Equal(t, 50.0, f.cachedPercentage(t, rootToken, student.ID, crs.ID))
}

func TestProgressAssessment(t *testing.T) {
	f := setup(t)
	root := f.createUser(t, "rooty", user.RoleRoot)
	student := f.createUser(t, "student", user.RoleStudent)
	crs, lessons := testutil.CreateCourse(t, f.env.CourseSvc, root, "Algebra", course.StatusPublished, 2)
	token := f.token(t, student)

	code, res := f.do(t, http.MethodPost, "/v1/progress", token, obj{"course_id": crs.ID, "lesson_id": "assessment-" + lessons[1].ID})
	require.Equal(t, http.StatusOK, code, "response: %v", res)

	code, res = f.do(t, http.MethodGet, "/v1/progress?course_id="+crs.ID, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, list(res, "progress"))
	assert.Equal(t, 0.0, res["percentage"])
	if assessments := list(res, "assessments"); assert.Len(t, assessments, 1) {
		a, _ := assessments[0].(map[string]interface{})
		assert.Equal(t, lessons[1].ID, a["lesson_id"])
	}
}

func TestProgressAccess(t *testing.T) {
	f := setup(t)
	root := f.createUser(t, "rooty", user.RoleRoot)
	student := f.createUser(t, "student", user.RoleStudent)
	other := f.createUser(t, "other", user.RoleStudent)
	crs, lessons := testutil.CreateCourse(t, f.env.CourseSvc, root, "Algebra", course.StatusPublished, 2)
	otherCrs, otherLessons := testutil.CreateCourse(t, f.env.CourseSvc, root, "Geometry", course.StatusPublished, 1)
	draft, draftLessons := testutil.CreateCourse(t, f.env.CourseSvc, root, "Drafted", course.StatusDraft, 1)
	token := f.token(t, student)

	code, _ := f.do(t, http.MethodPost, "/v1/progress", token, watch(crs.ID, lessons[0].ID, 600, true))
	require.Equal(t, http.StatusOK, code)

	f.run(t, []httpTest{
		{
			name:      "missing course_id",
			method:    http.MethodGet,
			path:      "/v1/progress",
			token:     token,
			wantCode:  http.StatusBadRequest,
			wantError: true,
		},
		{
			name:      "someone else's progress",
			method:    http.MethodGet,
			path:      "/v1/progress?course_id=" + crs.ID + "&user_id=" + student.ID,
			token:     f.token(t, other),
			wantCode:  http.StatusForbidden,
			wantError: true,
		},
		{
			name:      "root reads anyone's progress",
			method:    http.MethodGet,
			path:      "/v1/progress?course_id=" + crs.ID + "&user_id=" + student.ID,
			token:     f.token(t, root),
			wantCode:  http.StatusOK,
			wantError: false,
		},
		{
			name:      "lesson of another course",
			method:    http.MethodPost,
			path:      "/v1/progress",
			body:      watch(crs.ID, otherLessons[0].ID, 600, true),
			token:     token,
			wantCode:  http.StatusNotFound,
			wantError: true,
		},
		{
			name:      "unknown lesson",
			method:    http.MethodPost,
			path:      "/v1/progress",
			body:      watch(otherCrs.ID, "00000000-0000-0000-0000-000000000000", 600, true),
			token:     token,
			wantCode:  http.StatusNotFound,
			wantError: true,
		},
		{
			name:      "unpublished course",
			method:    http.MethodPost,
			path:      "/v1/progress",
			body:      watch(draft.ID, draftLessons[0].ID, 600, true),
			token:     token,
			wantCode:  http.StatusNotFound,
			wantError: true,
		},
		{
			name:      "negative seconds",
			method:    http.MethodPost,
			path:      "/v1/progress",
			body:      watch(crs.ID, lessons[1].ID, -1, false),
			token:     token,
			wantCode:  http.StatusBadRequest,
			wantError: true,
		},
	}, func(t *testing.T, tt httpTest, res map[string]interface{}) {
		if tt.name == "root reads anyone's progress" {
			assert.Equal(t, 50.0, res["percentage"])
		}
	})
}
