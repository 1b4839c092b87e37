package user

// Roles
const (
	RoleStudent       = "student"
	RoleTeacher       = "teacher"
	RoleCourseTeacher = "course_teacher"
	RoleAdmin         = "admin"
	RoleRoot          = "root"
)

// Subsystem identifies the part of the platform a capability flag unlocks.
type Subsystem int

const (
	SubsystemCourses Subsystem = iota + 1
	SubsystemActivities
)

// Hierarchy ranks roles within a subsystem. Unknown roles rank 0.
type Hierarchy map[string]int

func (h Hierarchy) Rank(role string) int {
	return h[role]
}

var (
	AllRoles = []string{RoleStudent, RoleTeacher, RoleCourseTeacher, RoleAdmin, RoleRoot}

	// CatalogHierarchy ranks roles for the activity catalog.
	CatalogHierarchy = Hierarchy{
		RoleStudent:       1,
		RoleTeacher:       2,
		RoleCourseTeacher: 2,
		RoleAdmin:         3,
		RoleRoot:          4,
	}

	// CoursesHierarchy ranks roles for the e-learning courses.
	CoursesHierarchy = Hierarchy{
		RoleStudent:       1,
		RoleTeacher:       2,
		RoleCourseTeacher: 2,
		RoleAdmin:         4,
		RoleRoot:          5,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Course Teacher", Value: RoleCourseTeacher},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Root", Value: RoleRoot},
	}

	grantEligibleRoles = map[string]bool{RoleStudent: true, RoleTeacher: true, RoleCourseTeacher: true}
	grantRequiredRoles = map[string]bool{RoleStudent: true, RoleTeacher: true}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func IsValidRole(role string) bool {
	_, ok := CoursesHierarchy[role]
	return ok
}

// Authorize tells whether usr holds at least requiredRole in the hierarchy.
// Inactive users never are, active roots always are.
func Authorize(usr User, requiredRole string, h Hierarchy) bool {
	if !usr.IsActive {
		return false
	}
	if usr.Role == RoleRoot {
		return true
	}
	rank, ok := h[usr.Role]
	if !ok {
		return false
	}
	return rank >= h.Rank(requiredRole)
}

// CanHoldGrant tells whether users with this role may receive course grants.
func CanHoldGrant(role string) bool {
	return grantEligibleRoles[role]
}

// RequiresGrant tells whether users with this role need a grant before enrolling themselves.
func RequiresGrant(role string) bool {
	return grantRequiredRoles[role]
}

// CanAssignRole tells whether actor may give `role` to a user: never above their own rank, root only by root.
func CanAssignRole(actor User, role string) bool {
	if actor.Role == RoleRoot {
		return true
	}
	if role == RoleRoot {
		return false
	}
	return CoursesHierarchy.Rank(role) <= CoursesHierarchy.Rank(actor.Role)
}
