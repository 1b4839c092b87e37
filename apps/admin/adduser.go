package main

import (
	"context"

	"github.com/trezcool/cursos/core/user"
)

// addUser creates an active user after the same validation as the API.
func (cli *commandLine) addUser(name, uname, email, role, pwd string) error {
	nu := user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Role:            role,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := nu.Validate(cli.validate, cli.usrSvc); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	logger.Printf("user %s (%s) created with role %s", usr.ID, usr.Name, usr.Role)
	return nil
}
