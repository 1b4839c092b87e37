package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/cursos/core/user"
	"github.com/trezcool/cursos/testutil"
)

func TestHome(t *testing.T) {
	f := setup(t)
	req, rec := newAuthRequest(http.MethodGet, "/", "")
	f.app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Cursos API!", rec.Body.String())
}

func TestUserLogin(t *testing.T) {
	f := setup(t)
	f.createUser(t, "jane", user.RoleStudent)
	testutil.CreateUser(t, f.env.Repos.Users, "Off", "offline", "off@test.local", "", user.RoleStudent, false)

	f.run(t, []httpTest{
		{
			name:      "missing password",
			method:    http.MethodPost,
			path:      "/v1/users/login",
			body:      obj{"username": "jane"},
			wantCode:  http.StatusBadRequest,
			wantError: true,
		},
		{
			name:      "wrong password",
			method:    http.MethodPost,
			path:      "/v1/users/login",
			body:      obj{"username": "jane", "password": "nope"},
			wantCode:  http.StatusBadRequest,
			wantError: true,
		},
		{
			name:      "unknown user",
			method:    http.MethodPost,
			path:      "/v1/users/login",
			body:      obj{"username": "ghost", "password": "Secret-pwd-123"},
			wantCode:  http.StatusBadRequest,
			wantError: true,
		},
		{
			name:      "inactive user",
			method:    http.MethodPost,
			path:      "/v1/users/login",
			body:      obj{"username": "offline", "password": "Secret-pwd-123"},
			wantCode:  http.StatusForbidden,
			wantError: true,
		},
		{
			name:      "by username",
			method:    http.MethodPost,
			path:      "/v1/users/login",
			body:      obj{"username": "JANE", "password": "Secret-pwd-123"},
			wantCode:  http.StatusOK,
			wantError: false,
		},
		{
			name:      "by email",
			method:    http.MethodPost,
			path:      "/v1/users/login",
			body:      obj{"username": "jane@test.local", "password": "Secret-pwd-123"},
			wantCode:  http.StatusOK,
			wantError: false,
		},
	}, func(t *testing.T, tt httpTest, res map[string]interface{}) {
		if tt.wantCode == http.StatusOK {
			assert.NotEmpty(t, res["token"])
		}
	})
}

func TestUserMe(t *testing.T) {
	f := setup(t)
	jane := f.createUser(t, "jane", user.RoleStudent)

	code, res := f.do(t, http.MethodGet, "/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "missing or malformed jwt", res["message"])

	code, _ = f.do(t, http.MethodGet, "/v1/users/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, res = f.do(t, http.MethodGet, "/v1/users/me", f.token(t, jane), nil)
	assert.Equal(t, http.StatusOK, code)
	if me, ok := res["user"].(map[string]interface{}); assert.True(t, ok) {
		assert.Equal(t, jane.ID, me["id"])
		assert.Equal(t, user.RoleStudent, me["role"])
		assert.NotContains(t, me, "password_hash")
	}
}

func TestDeactivatedUserToken(t *testing.T) {
	f := setup(t)
	jane := f.createUser(t, "jane", user.RoleStudent)
	token := f.token(t, jane)

	jane.IsActive = false
	_, err := f.env.Repos.Users.UpdateUser(testCtx(t), jane)
	assert.NoError(t, err)

	code, res := f.do(t, http.MethodGet, "/v1/users/me", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "account deactivated", res["message"])
}

func TestUserRoles(t *testing.T) {
	f := setup(t)
	jane := f.createUser(t, "jane", user.RoleStudent)

	code, res := f.do(t, http.MethodGet, "/v1/users/roles", f.token(t, jane), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, list(res, "roles"), len(user.Roles))
}

func TestUserAdminRoutes(t *testing.T) {
	f := setup(t)
	student := f.createUser(t, "student", user.RoleStudent)
	admin := f.createUser(t, "admin", user.RoleAdmin)
	root := f.createUser(t, "rooty", user.RoleRoot)

	newUser := func(uname, role string) obj {
		return obj{
			"name":             uname,
			"username":         uname,
			"email":            uname + "@test.local",
			"role":             role,
			"password":         "Kx9!mPq#2vLz",
			"password_confirm": "Kx9!mPq#2vLz",
		}
	}

	f.run(t, []httpTest{
		{
			name:      "student cannot list",
			method:    http.MethodGet,
			path:      "/v1/users",
			token:     f.token(t, student),
			wantCode:  http.StatusForbidden,
			wantError: true,
		},
		{
			name:      "admin lists",
			method:    http.MethodGet,
			path:      "/v1/users",
			token:     f.token(t, admin),
			wantCode:  http.StatusOK,
			wantError: false,
		},
		{
			name:      "student cannot create",
			method:    http.MethodPost,
			path:      "/v1/users",
			body:      newUser("pupil", user.RoleStudent),
			token:     f.token(t, student),
			wantCode:  http.StatusForbidden,
			wantError: true,
		},
		{
			name:      "admin cannot create root",
			method:    http.MethodPost,
			path:      "/v1/users",
			body:      newUser("boss", user.RoleRoot),
			token:     f.token(t, admin),
			wantCode:  http.StatusBadRequest,
			wantError: true,
			extra:     "role",
		},
		{
			name:      "invalid role",
			method:    http.MethodPost,
			path:      "/v1/users",
			body:      newUser("weird", "janitor"),
			token:     f.token(t, root),
			wantCode:  http.StatusBadRequest,
			wantError: true,
			extra:     "role",
		},
		{
			name:      "admin creates teacher",
			method:    http.MethodPost,
			path:      "/v1/users",
			body:      newUser("teach", user.RoleCourseTeacher),
			token:     f.token(t, admin),
			wantCode:  http.StatusCreated,
			wantError: false,
		},
		{
			name:      "root creates root",
			method:    http.MethodPost,
			path:      "/v1/users",
			body:      newUser("rooter", user.RoleRoot),
			token:     f.token(t, root),
			wantCode:  http.StatusCreated,
			wantError: false,
		},
		{
			name:      "duplicate username",
			method:    http.MethodPost,
			path:      "/v1/users",
			body:      newUser("teach", user.RoleStudent),
			token:     f.token(t, root),
			wantCode:  http.StatusBadRequest,
			wantError: true,
		},
	}, func(t *testing.T, tt httpTest, res map[string]interface{}) {
		if field, ok := tt.extra.(string); ok {
			fields, _ := res["fields"].(map[string]interface{})
			assert.Contains(t, fields, field)
		}
	})
}

func TestUserDetailRoutes(t *testing.T) {
	f := setup(t)
	jane := f.createUser(t, "jane", user.RoleStudent)
	john := f.createUser(t, "john", user.RoleStudent)
	admin := f.createUser(t, "admin", user.RoleAdmin)
	root := f.createUser(t, "rooty", user.RoleRoot)

	f.run(t, []httpTest{
		{
			name:      "own profile",
			method:    http.MethodGet,
			path:      "/v1/users/" + jane.ID,
			token:     f.token(t, jane),
			wantCode:  http.StatusOK,
			wantError: false,
		},
		{
			name:      "someone else's profile",
			method:    http.MethodGet,
			path:      "/v1/users/" + john.ID,
			token:     f.token(t, jane),
			wantCode:  http.StatusNotFound,
			wantError: true,
		},
		{
			name:      "rename self",
			method:    http.MethodPut,
			path:      "/v1/users/" + jane.ID,
			body:      obj{"name": "Jane Doe"},
			token:     f.token(t, jane),
			wantCode:  http.StatusOK,
			wantError: false,
		},
		{
			name:      "self promotion",
			method:    http.MethodPut,
			path:      "/v1/users/" + jane.ID,
			body:      obj{"role": user.RoleAdmin},
			token:     f.token(t, jane),
			wantCode:  http.StatusForbidden,
			wantError: true,
		},
		{
			name:      "admin cannot edit root",
			method:    http.MethodPut,
			path:      "/v1/users/" + root.ID,
			body:      obj{"name": "Nobody"},
			token:     f.token(t, admin),
			wantCode:  http.StatusForbidden,
			wantError: true,
		},
		{
			name:      "student cannot delete",
			method:    http.MethodDelete,
			path:      "/v1/users/" + jane.ID,
			token:     f.token(t, jane),
			wantCode:  http.StatusForbidden,
			wantError: true,
		},
		{
			name:      "admin deletes student",
			method:    http.MethodDelete,
			path:      "/v1/users/" + john.ID,
			token:     f.token(t, admin),
			wantCode:  http.StatusOK,
			wantError: false,
		},
		{
			name:      "deleted user",
			method:    http.MethodGet,
			path:      "/v1/users/" + john.ID,
			token:     f.token(t, admin),
			wantCode:  http.StatusNotFound,
			wantError: true,
		},
	})
}
