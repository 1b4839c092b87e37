package user

import "testing"

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name     string
		usr      User
		required string
		h        Hierarchy
		want     bool
	}{
		{name: "student as student", usr: User{Role: RoleStudent, IsActive: true}, required: RoleStudent, h: CoursesHierarchy, want: true},
		{name: "student as teacher", usr: User{Role: RoleStudent, IsActive: true}, required: RoleTeacher, h: CoursesHierarchy},
		{name: "course teacher as teacher", usr: User{Role: RoleCourseTeacher, IsActive: true}, required: RoleTeacher, h: CoursesHierarchy, want: true},
		{name: "admin as admin", usr: User{Role: RoleAdmin, IsActive: true}, required: RoleAdmin, h: CatalogHierarchy, want: true},
		{name: "admin as root", usr: User{Role: RoleAdmin, IsActive: true}, required: RoleRoot, h: CoursesHierarchy},
		{name: "root bypasses", usr: User{Role: RoleRoot, IsActive: true}, required: "anything", h: CoursesHierarchy, want: true},
		{name: "inactive root", usr: User{Role: RoleRoot}, required: RoleStudent, h: CoursesHierarchy},
		{name: "inactive admin", usr: User{Role: RoleAdmin}, required: RoleStudent, h: CoursesHierarchy},
		{name: "unknown role", usr: User{Role: "janitor", IsActive: true}, required: RoleStudent, h: CoursesHierarchy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Authorize(tt.usr, tt.required, tt.h); got != tt.want {
				t.Errorf("Authorize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanAssignRole(t *testing.T) {
	tests := []struct {
		actor string
		role  string
		want  bool
	}{
		{actor: RoleRoot, role: RoleRoot, want: true},
		{actor: RoleAdmin, role: RoleRoot},
		{actor: RoleAdmin, role: RoleAdmin, want: true},
		{actor: RoleAdmin, role: RoleCourseTeacher, want: true},
		{actor: RoleTeacher, role: RoleCourseTeacher, want: true},
		{actor: RoleTeacher, role: RoleAdmin},
		{actor: RoleStudent, role: RoleTeacher},
	}
	for _, tt := range tests {
		t.Run(tt.actor+"->"+tt.role, func(t *testing.T) {
			if got := CanAssignRole(User{Role: tt.actor, IsActive: true}, tt.role); got != tt.want {
				t.Errorf("CanAssignRole() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGrantRoles(t *testing.T) {
	for _, role := range AllRoles {
		hold, require := CanHoldGrant(role), RequiresGrant(role)
		switch role {
		case RoleStudent, RoleTeacher:
			if !hold || !require {
				t.Errorf("%s: CanHoldGrant = %v, RequiresGrant = %v, want both", role, hold, require)
			}
		case RoleCourseTeacher:
			if !hold || require {
				t.Errorf("%s: CanHoldGrant = %v, RequiresGrant = %v", role, hold, require)
			}
		default:
			if hold || require {
				t.Errorf("%s: CanHoldGrant = %v, RequiresGrant = %v, want neither", role, hold, require)
			}
		}
	}
}

func TestUserCanManage(t *testing.T) {
	usr := User{CanManageCourses: true}
	if !usr.CanManage(SubsystemCourses) {
		t.Error("CanManage(SubsystemCourses) = false")
	}
	if usr.CanManage(SubsystemActivities) {
		t.Error("CanManage(SubsystemActivities) = true")
	}
	if usr.CanManage(Subsystem(42)) {
		t.Error("CanManage(42) = true")
	}
}
