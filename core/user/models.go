package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/cursos/core"
)

type User struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Username            string    `json:"username"`
	Email               string    `json:"email"`
	Role                string    `json:"role"`
	CanManageCourses    bool      `json:"can_manage_courses"`
	CanManageActivities bool      `json:"can_manage_activities"`
	IsActive            bool      `json:"is_active"`
	PasswordHash        []byte    `json:"-"`
	CreatedAt           time.Time `json:"created_at"` // UTC
	UpdatedAt           time.Time `json:"updated_at"` // UTC
	LastLogin           time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsRoot() bool {
	return u.Role == RoleRoot
}

// CanManage tells whether u holds the capability flag of the subsystem.
func (u User) CanManage(s Subsystem) bool {
	switch s {
	case SubsystemCourses:
		return u.CanManageCourses
	case SubsystemActivities:
		return u.CanManageActivities
	default:
		return false
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name                string `json:"name" validate:"required"`
	Username            string `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email               string `json:"email" validate:"omitempty,email"`
	Role                string `json:"role" validate:"required,role"`
	CanManageCourses    bool   `json:"can_manage_courses"`
	CanManageActivities bool   `json:"can_manage_activities"`
	Password            string `json:"password" validate:"required"`
	PasswordConfirm     string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name                string `json:"name"`
	Username            string `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email               string `json:"email" validate:"omitempty,email"`
	Role                string `json:"role" validate:"omitempty,role"`
	CanManageCourses    *bool  `json:"can_manage_courses"`
	CanManageActivities *bool  `json:"can_manage_activities"`
	IsActive            *bool  `json:"is_active"`
	Password            string `json:"password" validate:"omitempty"`
	PasswordConfirm     string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// IsPrivileged tells whether uu touches fields only managers may change.
func (uu *UpdateUser) IsPrivileged() bool {
	return uu.Role != "" || uu.IsActive != nil || uu.CanManageCourses != nil || uu.CanManageActivities != nil ||
		uu.Username != "" || uu.Email != ""
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc *Service) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	uu.Role = core.CleanString(uu.Role, true /* lower */)

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Username, uu.Email, origUsr)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter picks a single User; the first non-empty field wins.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}
