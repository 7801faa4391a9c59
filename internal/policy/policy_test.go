package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

var (
	admin      = Actor{UserID: "admin-1", Role: models.RoleAdmin}
	instructor = Actor{UserID: "teacher-1", Role: models.RoleTeacher}
	otherTutor = Actor{UserID: "teacher-2", Role: models.RoleTeacher}
	student    = Actor{UserID: "student-1", Role: models.RoleStudent}
	anonymous  = Actor{}
)

func TestCoursePolicy(t *testing.T) {
	public := Resource{Kind: KindCourse, InstructorID: instructor.UserID, Published: true, Active: true}
	draft := Resource{Kind: KindCourse, InstructorID: instructor.UserID, Active: true}
	draftEnrolled := draft
	draftEnrolled.Enrolled = true
	inactive := Resource{Kind: KindCourse, InstructorID: instructor.UserID, Published: true}

	cases := []struct {
		name   string
		actor  Actor
		action Action
		res    Resource
		want   bool
	}{
		{"anonymous sees public course", anonymous, ActionView, public, true},
		{"anonymous cannot see draft", anonymous, ActionView, draft, false},
		{"student cannot see draft", student, ActionView, draft, false},
		{"enrolled student sees draft", student, ActionView, draftEnrolled, true},
		{"instructor sees own draft", instructor, ActionView, draft, true},
		{"admin sees inactive", admin, ActionView, inactive, true},
		{"student cannot see inactive", student, ActionView, inactive, false},
		{"public course content needs enrollment", student, ActionViewContent, public, false},
		{"enrolled student views content", student, ActionViewContent, draftEnrolled, true},
		{"instructor edits", instructor, ActionEdit, draft, true},
		{"other teacher cannot edit", otherTutor, ActionEdit, public, false},
		{"admin edits", admin, ActionEdit, public, true},
		{"student cannot report", student, ActionReport, draftEnrolled, false},
		{"student enrolls in public course", student, ActionEnroll, public, true},
		{"cannot enroll in draft", student, ActionEnroll, draft, false},
		{"instructor cannot enroll in own course", instructor, ActionEnroll, public, false},
		{"other teacher may enroll", otherTutor, ActionEnroll, public, true},
		{"anonymous cannot enroll", anonymous, ActionEnroll, public, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Allow(tc.actor, tc.action, tc.res))
		})
	}
}

func TestAttemptPolicy(t *testing.T) {
	res := Resource{Kind: KindAttempt, OwnerID: student.UserID, InstructorID: instructor.UserID}

	assert.True(t, Allow(student, ActionView, res))
	assert.True(t, Allow(instructor, ActionView, res))
	assert.True(t, Allow(admin, ActionView, res))
	assert.False(t, Allow(Actor{UserID: "student-2", Role: models.RoleStudent}, ActionView, res))
	assert.False(t, Allow(otherTutor, ActionView, res))
	assert.False(t, Allow(student, ActionEdit, res))
}

func TestUserPolicy(t *testing.T) {
	self := Resource{Kind: KindUser, OwnerID: student.UserID}

	assert.True(t, Allow(student, ActionEdit, self))
	assert.False(t, Allow(student, ActionManage, self))
	assert.True(t, Allow(admin, ActionManage, self))
	assert.False(t, Allow(instructor, ActionView, self))
}

func TestUnknownKindDenied(t *testing.T) {
	assert.False(t, Allow(admin, ActionView, Resource{Kind: "grade"}))
}

func TestAuthorizeReturnsForbidden(t *testing.T) {
	err := Authorize(student, ActionEdit, Resource{Kind: KindCourse, InstructorID: instructor.UserID}, "not the course instructor")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Equal(t, "not the course instructor", appErrors.FromError(err).Message)

	assert.NoError(t, Authorize(admin, ActionEdit, Resource{Kind: KindCourse}, "x"))
}

func TestCourseResourceFromModel(t *testing.T) {
	res := Course(&models.Course{InstructorID: "t", Published: true, Active: true}, true)
	assert.Equal(t, KindCourse, res.Kind)
	assert.True(t, res.Enrolled)
	assert.True(t, res.Published)
}
