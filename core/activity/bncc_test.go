package activity

import (
	"testing"

	"github.com/trezcool/cursos/core/user"
)

func TestStageOf(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{code: "EI01EO03", want: StageInfantil},
		{code: "EI03TS02", want: StageInfantil},
		{code: "EI04EO01", want: ""},
		{code: "EF05MA12", want: StageFundamental},
		{code: "EF69LP01", want: StageFundamental},
		{code: "EM13LGG101", want: StageMedio},
		{code: "EM13MAT302", want: StageMedio},
		{code: "EF5MA12", want: ""},
		{code: "em13lgg101", want: ""},
		{code: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := StageOf(tt.code); got != tt.want {
				t.Errorf("StageOf(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestNormalizeBNCC(t *testing.T) {
	if got := NormalizeBNCC("  ef05ma12\n"); got != "EF05MA12" {
		t.Errorf("NormalizeBNCC() = %q", got)
	}
	if !IsValidBNCC(NormalizeBNCC(" em13lgg101 ")) {
		t.Error("IsValidBNCC(normalized) = false")
	}
}

func TestCanModify(t *testing.T) {
	a := Activity{CreatedBy: "author"}
	tests := []struct {
		name  string
		actor user.User
		want  bool
	}{
		{name: "owner", actor: user.User{ID: "author", Role: user.RoleTeacher, IsActive: true}, want: true},
		{name: "inactive owner", actor: user.User{ID: "author", Role: user.RoleTeacher}},
		{name: "colleague", actor: user.User{ID: "other", Role: user.RoleTeacher, IsActive: true}},
		{name: "capability", actor: user.User{ID: "other", Role: user.RoleStudent, IsActive: true, CanManageActivities: true}, want: true},
		{name: "admin", actor: user.User{ID: "other", Role: user.RoleAdmin, IsActive: true}, want: true},
		{name: "course teacher", actor: user.User{ID: "other", Role: user.RoleCourseTeacher, IsActive: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanModify(tt.actor, a); got != tt.want {
				t.Errorf("CanModify() = %v, want %v", got, tt.want)
			}
		})
	}
}
