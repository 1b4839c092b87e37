package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/cursos/apps/api/echo"
	"github.com/trezcool/cursos/core/user"
	inmemdb "github.com/trezcool/cursos/storage/database/inmem"
	"github.com/trezcool/cursos/testutil"
)

type fixture struct {
	app Server
	env *testutil.Env
	db  *inmemdb.DB
}

func setup(t *testing.T) *fixture {
	t.Helper()

	env, db := testutil.NewInMemEnv()

	// set up server
	app := NewServer(&Options{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Validate:       env.Validate,
		Translator:     env.Translator,
		DisableReqLogs: true,

		UserSvc:       env.UserSvc,
		CourseSvc:     env.CourseSvc,
		EnrollmentSvc: env.EnrollmentSvc,
		ProgressSvc:   env.ProgressSvc,
		ActivitySvc:   env.ActivitySvc,
		DemandSvc:     env.DemandSvc,
		ReportSvc:     env.ReportSvc,
	})
	return &fixture{app: app, env: env, db: db}
}

func (f *fixture) createUser(t *testing.T, name, role string) user.User {
	t.Helper()
	return testutil.CreateUser(t, f.env.Repos.Users, name, name, name+"@test.local", "", role, true)
}

func (f *fixture) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(f.env.Conf, GetUserClaims(f.env.Conf, usr))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

// do sends the request through the server and decodes the JSON envelope.
func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	req, rec := newAuthRequest(method, path, token, marshalBody(t, body))
	f.app.ServeHTTP(rec, req)

	var res map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res), "body: %s", rec.Body.String())
	}
	return rec.Code, res
}

type httpTest struct {
	name      string
	method    string
	path      string
	body      interface{}
	token     string
	wantCode  int
	wantError bool
	extra     interface{}
}

// run executes table-driven calls, checking the status code and the envelope.
func (f *fixture) run(t *testing.T, tests []httpTest, check ...func(t *testing.T, tt httpTest, res map[string]interface{})) {
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			code, res := f.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, code, "response: %v", res)
			if assert.NotNil(t, res) {
				assert.Equal(t, tt.wantError, res["error"], "response: %v", res)
			}
			for _, c := range check {
				c(t, tt, res)
			}
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marshalBody(t *testing.T, body interface{}) []byte {
	switch b := body.(type) {
	case nil:
		return nil
	case string:
		return []byte(b)
	case []byte:
		return b
	}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshalBody() failed: %v", err)
	}
	return data
}

type obj = map[string]interface{}

func list(res map[string]interface{}, key string) []interface{} {
	l, _ := res[key].([]interface{})
	return l
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	return context.Background()
}
