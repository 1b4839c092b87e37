package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cursos/core/course"
	"github.com/trezcool/cursos/core/user"
	inmemdb "github.com/trezcool/cursos/storage/database/inmem"
	"github.com/trezcool/cursos/testutil"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *inmemdb.DB) {
	logger = log.New(io.Discard, "", 0)
	env, db := testutil.NewInMemEnv()

	// start CLI
	return &commandLine{
		usrSvc:     env.UserSvc,
		enrollRepo: env.Repos.Enrollments,
		validate:   env.Validate,
	}, env, db
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantAnyErr bool
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	case tt.wantAnyErr:
		assert.Error(t, err)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	var gotCommand string
	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		gotCommand = command
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}, extra: "up"},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}, extra: "up-by-one"},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}, extra: "up-to"},
		{name: "down", args: []string{"migrate", "down"}, extra: "down"},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}, extra: "down-to"},
		{name: "redo", args: []string{"migrate", "redo"}, extra: "redo"},
		{name: "status", args: []string{"migrate", "status"}, extra: "status"},
		{name: "version", args: []string{"migrate", "version"}, extra: "version"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			gotCommand = ""
			tt.check(t, cli.run(args))
			if want, ok := tt.extra.(string); ok {
				assert.Equal(t, want, gotCommand)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env, _ := setup(t)
	testutil.CreateUser(t, env.Repos.Users, "Taken", "taken", "taken@test.local", "", user.RoleStudent, true)

	pwd := "Kx9!mPq#2vLz"
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no username nor email", args: []string{"adduser", "-name", "Root"}, wantErr: errHelp},
		{name: "username taken", args: []string{"adduser", "-name", "Other", "-username", "taken"}, wantErrStr: user.ErrUsernameExists.Error()},
		{name: "invalid role", args: []string{"adduser", "-name", "Other", "-username", "other", "-role", "lol"}, wantAnyErr: true},
		{name: "root by default", args: []string{"adduser", "-name", "Root", "-username", "root", "-email", "root@test.local"}, extra: user.RoleRoot},
		{name: "teacher", args: []string{"adduser", "-name", "Prof", "-email", "prof@test.local", "-role", "teacher"}, extra: user.RoleTeacher},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			tt.check(t, err)
			if role, ok := tt.extra.(string); ok && err == nil {
				users, err := env.UserSvc.Query(context.Background(), &user.QueryFilter{Roles: []string{role}}, nil)
				require.NoError(t, err)
				require.Len(t, users, 1)
				assert.True(t, users[0].IsActive)
				assert.NoError(t, users[0].CheckPassword(pwd))
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env, _ := setup(t)

	usr := testutil.CreateUser(t, env.Repos.Users, "User", "awe", "awe@test.local", "Kx9!mPq#2vLz", user.RoleStudent, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "Lol-123456"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", "AWE@test.local"}, extra: extra{pwd: "Lmao-123456"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			readPasswordFunc = func(fd int) ([]byte, error) {
				if extra, ok := tt.extra.(extra); ok {
					return []byte(extra.pwd), nil
				}
				return nil, nil
			}

			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				refreshedUsr, err := env.UserSvc.GetByID(context.Background(), usr.ID)
				require.NoError(t, err)
				assert.False(t, bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash), "failed to update new password")
				assert.NoError(t, refreshedUsr.CheckPassword(tt.extra.(extra).pwd))
			}
		})
	}
}

func Test_commandLine_reconcile(t *testing.T) {
	cli, env, db := setup(t)
	ctx := context.Background()

	root := testutil.CreateUser(t, env.Repos.Users, "Root", "root", "", "", user.RoleRoot, true)
	student := testutil.CreateUser(t, env.Repos.Users, "Student", "student", "", "", user.RoleStudent, true)
	crs, _ := testutil.CreateCourse(t, env.CourseSvc, root, "Go 101", course.StatusPublished, 1)

	_, err := env.EnrollmentSvc.Grant(ctx, root, student.ID, crs.ID)
	require.NoError(t, err)

	// drift the counter behind the repository's back
	inmemdb.NewEnrollmentRepository(db).SetEnrolledCount(crs.ID, 7)

	require.NoError(t, cli.run([]string{"admin", "reconcile"}))

	got, err := env.Repos.Courses.GetCourse(ctx, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.EnrolledCount)
}
