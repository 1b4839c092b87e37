package user

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/cursos/core"
)

func TestPasswordPolicy(t *testing.T) {
	validate, translator := core.NewValidator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	tests := []struct {
		name    string
		pwd     string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "Abc 123!xyz", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "no special", pwd: "Abcdef123", wantTag: pwdComplexityTag},
		{name: "no upper", pwd: "abcdef12!", wantTag: pwdComplexityTag},
		{name: "similar to username", pwd: "Mariana1!", wantTag: pwdAttrSimTag},
		{name: "valid", pwd: "Kx9!mPq#2vLz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{
				Name:            "Ana",
				Username:        "mariana",
				Role:            RoleStudent,
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
			}
			err := validate.Struct(nu)
			if tt.wantTag == "" {
				if err != nil {
					t.Fatalf("Struct() error = %v", err)
				}
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			if !ok {
				t.Fatalf("Struct() error = %v, want ValidationErrors", err)
			}
			for _, fe := range vErrs {
				if fe.Field() == "password" && fe.Tag() == tt.wantTag {
					return
				}
			}
			t.Errorf("Struct() errors = %v, want password %s", vErrs, tt.wantTag)
		})
	}
}

func TestUsernameOrEmailRequired(t *testing.T) {
	validate, translator := core.NewValidator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	nu := NewUser{Name: "Ana", Role: RoleStudent, Password: "Kx9!mPq#2vLz", PasswordConfirm: "Kx9!mPq#2vLz"}
	vErrs, ok := validate.Struct(nu).(validator.ValidationErrors)
	if !ok || len(vErrs) != 2 {
		t.Fatalf("Struct() errors = %v, want username and email", vErrs)
	}
	for _, fe := range vErrs {
		if fe.Tag() != usernameOrEmailTag {
			t.Errorf("%s: tag = %s, want %s", fe.Field(), fe.Tag(), usernameOrEmailTag)
		}
	}

	nu.Role = "janitor"
	nu.Email = "ana@test.local"
	vErrs, _ = validate.Struct(nu).(validator.ValidationErrors)
	if len(vErrs) != 1 || vErrs[0].Field() != "role" {
		t.Errorf("Struct() errors = %v, want role", vErrs)
	}
}
