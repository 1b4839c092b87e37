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

// enrolledCount reads the course counter through the API.
func (f *fixture) enrolledCount(t *testing.T, token, courseID string) float64 {
	t.Helper()
	code, res := f.do(t, http.MethodGet, "/v1/courses/"+courseID, token, nil)
	require.Equal(t, http.StatusOK, code, "response: %v", res)
	crs, _ := res["course"].(map[string]interface{})
	n, _ := crs["enrolled_count"].(float64)
	return n
}

func grantsManager(t *testing.T, f *fixture) user.User {
	t.Helper()
	mgr := testutil.CreateUser(t, f.env.Repos.Users, "Manager", "manager", "manager@test.local", "", user.RoleTeacher, true)
	mgr.CanManageCourses = true
	mgr, err := f.env.Repos.Users.UpdateUser(testCtx(t), mgr)
	require.NoError(t, err)
	return mgr
}

func TestGrantPermission(t *testing.T) {
	f := setup(t)
	root := f.createUser(t, "rooty", user.RoleRoot)
	admin := f.createUser(t, "admin", user.RoleAdmin)
	student := f.createUser(t, "student", user.RoleStudent)
	teacher := f.createUser(t, "teacher", user.RoleTeacher)
	mgr := grantsManager(t, f)

	published, _ := testutil.CreateCourse(t, f.env.CourseSvc, root, "Algebra", course.StatusPublished, 2)
	draft, _ := testutil.CreateCourse(t, f.env.CourseSvc, root, "Geometry", course.StatusDraft, 2)

	grant := func(userID, courseID string) obj { return obj{"user_id": userID, "course_id": courseID} }

	f.run(t, []httpTest{
		{
			name:      "unauthenticated",
			method:    http.MethodPost,
			path:      "/v1/permissions",
			body:      grant(student.ID, published.ID),
			wantCode:  http.StatusUnauthorized,
			wantError: true,
		},
		{
			name:      "without the capability",
			method:    http.MethodPost,
			path:      "/v1/permissions",
			body:      grant(student.ID, published.ID),
			token:     f.token(t, teacher),
			wantCode:  http.StatusForbidden,
			wantError: true,
		},
		{
			name:      "admin without the capability",
			method:    http.MethodPost,
			path:      "/v1/permissions",
			body:      grant(student.ID, published.ID),
			token:     f.token(t, admin),
			wantCode:  http.StatusForbidden,
			wantError: true,
		},
		{
			name:      "missing course",
			method:    http.MethodPost,
			path:      "/v1/permissions",
			body:      obj{"user_id": student.ID},
			token:     f.token(t, root),
			wantCode:  http.StatusBadRequest,
			wantError: true,
		},
		{
			name:      "unknown user",
			method:    http.MethodPost,
			path:      "/v1/permissions",
			body:      grant("00000000-0000-0000-0000-000000000000", published.ID),
			token:     f.token(t, root),
			wantCode:  http.StatusNotFound,
			wantError: true,
		},
		{
			name:      "unknown course",
			method:    http.MethodPost,
			path:      "/v1/permissions",
			body:      grant(student.ID, "00000000-0000-0000-0000-000000000000"),
			token:     f.token(t, root),
			wantCode:  http.StatusNotFound,
			wantError: true,
		},
		{
			name:      "ineligible role",
			method:    http.MethodPost,
			path:      "/v1/permissions",
			body:      grant(admin.ID, published.ID),
			token:     f.token(t, root),
			wantCode:  http.StatusBadRequest,
			wantError: true,
			extra:     "user_id",
		},
		{
			name:      "published course enrolls",
			method:    http.MethodPost,
			path:      "/v1/permissions",
			body:      grant(student.ID, published.ID),
			token:     f.token(t, mgr),
			wantCode:  http.StatusCreated,
			wantError: false,
			extra:     true,
		},
		{
			name:      "duplicate",
			method:    http.MethodPost,
			path:      "/v1/permissions",
			body:      grant(student.ID, published.ID),
			token:     f.token(t, root),
			wantCode:  http.StatusConflict,
			wantError: true,
		},
		{
			name:      "draft course does not enroll",
			method:    http.MethodPost,
			path:      "/v1/permissions",
			body:      grant(student.ID, draft.ID),
			token:     f.token(t, root),
			wantCode:  http.StatusCreated,
			wantError: false,
			extra:     false,
		},
	}, func(t *testing.T, tt httpTest, res map[string]interface{}) {
		switch extra := tt.extra.(type) {
		case bool:
			assert.Equal(t, extra, res["enrollment_created"])
		case string:
			fields, _ := res["fields"].(map[string]interface{})
			assert.Contains(t, fields, extra)
		}
	})

	rootToken := f.token(t, root)
	assert.Equal(t, float64(1), f.enrolledCount(t, rootToken, published.ID))
	assert.Equal(t, float64(0), f.enrolledCount(t, rootToken, draft.ID))

	code, res := f.do(t, http.MethodGet, "/v1/permissions?user_id="+student.ID, rootToken, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, list(res, "permissions"), 2)

	code, _ = f.do(t, http.MethodGet, "/v1/permissions", f.token(t, student), nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestGrantNotification(t *testing.T) {
	f := setup(t)
	root := f.createUser(t, "rooty", user.RoleRoot)
	student := f.createUser(t, "student", user.RoleStudent)
	noMail := testutil.CreateUser(t, f.env.Repos.Users, "No Mail", "nomail", "", "", user.RoleStudent, true)
	crs, _ := testutil.CreateCourse(t, f.env.CourseSvc, root, "Algebra", course.StatusPublished, 1)

	code, _ := f.do(t, http.MethodPost, "/v1/permissions", f.token(t, root), obj{"user_id": student.ID, "course_id": crs.ID})
	require.Equal(t, http.StatusCreated, code)

	sent := f.env.Mailer.SentMessages()
	if assert.Len(t, sent, 1) {
		msg := sent[0]
		assert.Equal(t, "student@test.local", msg.To[0].Address)
		assert.Equal(t, "course_access_granted", msg.TemplateName)
		assert.Contains(t, msg.Subject, "Algebra")
		assert.Contains(t, msg.TextContent, "Algebra")
	}

	f.env.Mailer.Reset()
	code, _ = f.do(t, http.MethodPost, "/v1/permissions", f.token(t, root), obj{"user_id": noMail.ID, "course_id": crs.ID})
	require.Equal(t, http.StatusCreated, code)
	assert.Empty(t, f.env.Mailer.SentMessages())
}

func TestRevokePermission(t *testing.T) {
	f := setup(t)
	root := f.createUser(t, "rooty", user.RoleRoot)
	student := f.createUser(t, "student", user.RoleStudent)
	crs, _ := testutil.CreateCourse(t, f.env.CourseSvc, root, "Algebra", course.StatusPublished, 2)
	token := f.token(t, root)
	body := obj{"user_id": student.ID, "course_id": crs.ID}

	code, _ := f.do(t, http.MethodDelete, "/v1/permissions", token, body)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, http.MethodDelete, "/v1/permissions", f.token(t, student), body)
	assert.Equal(t, http.StatusForbidden, code)

	// grant then revoke leaves the counter where it was
	before := f.enrolledCount(t, token, crs.ID)
	code, res := f.do(t, http.MethodPost, "/v1/permissions", token, body)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, res["enrollment_created"])
	assert.Equal(t, before+1, f.enrolledCount(t, token, crs.ID))

	code, res = f.do(t, http.MethodDelete, "/v1/permissions", token, body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, res["enrollment_removed"])
	assert.Equal(t, before, f.enrolledCount(t, token, crs.ID))

	// query params work as well as a body
	code, _ = f.do(t, http.MethodPost, "/v1/permissions", token, body)
	require.Equal(t, http.StatusCreated, code)
	code, res = f.do(t, http.MethodDelete, "/v1/permissions?user_id="+student.ID+"&course_id="+crs.ID, token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, res["enrollment_removed"])
	assert.Equal(t, before, f.enrolledCount(t, token, crs.ID))
}

func TestSelfEnroll(t *testing.T) {
	f := setup(t)
	root := f.createUser(t, "rooty", user.RoleRoot)
	student := f.createUser(t, "student", user.RoleStudent)
	other := f.createUser(t, "other", user.RoleStudent)
	courseTeacher := f.createUser(t, "cteacher", user.RoleCourseTeacher)

	crs, _ := testutil.CreateCourse(t, f.env.CourseSvc, root, "Algebra", course.StatusPublished, 2)
	draft, _ := testutil.CreateCourse(t, f.env.CourseSvc, root, "Geometry", course.StatusDraft, 2)
	_, err := f.env.EnrollmentSvc.Grant(testCtx(t), root, student.ID, draft.ID)
	require.NoError(t, err)

	studentToken := f.token(t, student)
	rootToken := f.token(t, root)

	code, res := f.do(t, http.MethodPost, "/v1/enrollments", studentToken, obj{"course_id": crs.ID})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "access to this course requires a grant", res["message"])

	code, _ = f.do(t, http.MethodPost, "/v1/enrollments", studentToken, obj{"course_id": draft.ID})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, http.MethodPost, "/v1/enrollments", studentToken, obj{})
	assert.Equal(t, http.StatusBadRequest, code)

	// course teachers do not need a grant
	code, res = f.do(t, http.MethodPost, "/v1/enrollments", f.token(t, courseTeacher), obj{"course_id": crs.ID})
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "enrolled", res["message"])

	// granting enrolls, then self-enrolling is a no-op
	_, err = f.env.EnrollmentSvc.Grant(testCtx(t), root, student.ID, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(2), f.enrolledCount(t, rootToken, crs.ID))

	for i := 0; i < 2; i++ {
		code, res = f.do(t, http.MethodPost, "/v1/enrollments", studentToken, obj{"course_id": crs.ID})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, true, res["enrolled"])
		assert.Equal(t, "already enrolled", res["message"])
	}
	assert.Equal(t, float64(2), f.enrolledCount(t, rootToken, crs.ID))

	// students only see their own enrollments
	code, res = f.do(t, http.MethodGet, "/v1/enrollments", studentToken, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, list(res, "enrollments"), 1)

	code, res = f.do(t, http.MethodGet, "/v1/enrollments?course_id="+crs.ID, rootToken, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, list(res, "enrollments"), 2)

	// only root acts on behalf of someone else
	code, _ = f.do(t, http.MethodPost, "/v1/enrollments", studentToken, obj{"course_id": crs.ID, "user_id": other.ID})
	assert.Equal(t, http.StatusForbidden, code)

	_, err = f.env.EnrollmentSvc.Grant(testCtx(t), root, other.ID, draft.ID)
	require.NoError(t, err)
	code, _ = f.do(t, http.MethodPost, "/v1/enrollments", rootToken, obj{"course_id": crs.ID, "user_id": other.ID})
	assert.Equal(t, http.StatusForbidden, code, "other has no grant on this course")
}

func TestSelfUnenroll(t *testing.T) {
	f := setup(t)
	root := f.createUser(t, "rooty", user.RoleRoot)
	student := f.createUser(t, "student", user.RoleStudent)
	crs, _ := testutil.CreateCourse(t, f.env.CourseSvc, root, "Algebra", course.StatusPublished, 2)

	enrolled, err := f.env.EnrollmentSvc.Grant(testCtx(t), root, student.ID, crs.ID)
	require.NoError(t, err)
	require.True(t, enrolled)

	token := f.token(t, student)
	rootToken := f.token(t, root)
	assert.Equal(t, float64(1), f.enrolledCount(t, rootToken, crs.ID))

	code, res := f.do(t, http.MethodDelete, "/v1/enrollments", token, obj{"course_id": crs.ID})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, res["enrollment_removed"])
	assert.Equal(t, float64(0), f.enrolledCount(t, rootToken, crs.ID))

	code, res = f.do(t, http.MethodDelete, "/v1/enrollments", token, obj{"course_id": crs.ID})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, res["enrollment_removed"])
	assert.Equal(t, float64(0), f.enrolledCount(t, rootToken, crs.ID))

	// the grant survives, so the student may come back
	code, res = f.do(t, http.MethodPost, "/v1/enrollments", token, obj{"course_id": crs.ID})
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "enrolled", res["message"])
	assert.Equal(t, float64(1), f.enrolledCount(t, rootToken, crs.ID))
}
