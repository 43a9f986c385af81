package services

import (
	"testing"

	"github.com/davrbek/coursehub-backend/internal/types"
)

func userWithRoles(names ...string) *types.User {
	u := &types.User{ID: 1, IsActive: true}
	for _, name := range names {
		u.Roles = append(u.Roles, &types.Role{Name: name})
	}
	return u
}

func TestLessonIsFree(t *testing.T) {
	cases := []struct {
		position int
		want     bool
	}{
		{0, true},
		{1, true},
		{FreeLessonThreshold, true},
		{FreeLessonThreshold + 1, false},
		{99, false},
	}
	for _, tc := range cases {
		if got := LessonIsFree(tc.position); got != tc.want {
			t.Errorf("LessonIsFree(%d) = %v, want %v", tc.position, got, tc.want)
		}
	}
}

func TestLessonLockedFor(t *testing.T) {
	free := &types.CourseLesson{Position: 1}
	paid := &types.CourseLesson{Position: FreeLessonThreshold + 1}

	cases := []struct {
		name      string
		viewer    *types.User
		lesson    *types.CourseLesson
		purchased bool
		want      bool
	}{
		{"anonymous free lesson", nil, free, false, false},
		{"anonymous paid lesson", nil, paid, false, true},
		{"student unpurchased", userWithRoles(types.RoleUser), paid, false, true},
		{"student purchased", userWithRoles(types.RoleUser), paid, true, false},
		{"teacher bypasses lock", userWithRoles(types.RoleTeacher), paid, false, false},
		{"admin bypasses lock", userWithRoles(types.RoleAdmin), paid, false, false},
		{"purchase irrelevant on free lesson", userWithRoles(types.RoleUser), free, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LessonLockedFor(tc.viewer, tc.lesson, tc.purchased); got != tc.want {
				t.Fatalf("LessonLockedFor() = %v, want %v", got, tc.want)
			}
		})
	}
}
