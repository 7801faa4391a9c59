// Package policy decides whether an actor may perform an action on a
// resource. Services collect the facts (ownership, enrollment, visibility)
// and ask the policy; nothing here touches storage.
package policy

import (
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

// Kind names a protected resource family.
type Kind string

const (
	KindCourse        Kind = "course"
	KindAttempt       Kind = "quiz_attempt"
	KindUser          Kind = "user"
	KindStudentRecord Kind = "student_record"
)

// Action is an operation requested on a resource.
type Action string

const (
	// ActionView reads the resource's metadata.
	ActionView Action = "view"
	// ActionViewContent reads lectures, quizzes and questions of a course.
	ActionViewContent Action = "view_content"
	// ActionEdit mutates the resource or its children.
	ActionEdit Action = "edit"
	// ActionManage covers privileged mutations such as role changes.
	ActionManage Action = "manage"
	// ActionEnroll joins a course as a student.
	ActionEnroll Action = "enroll"
	// ActionReport reads aggregated data about other students.
	ActionReport Action = "report"
)

// Actor is the verified caller.
type Actor struct {
	UserID string
	Role   models.UserRole
}

// ActorFromClaims converts gate claims into an Actor.
func ActorFromClaims(claims *models.JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}
}

// Anonymous reports whether no identity is attached.
func (a Actor) Anonymous() bool { return a.UserID == "" }

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// Resource carries the facts a decision depends on.
type Resource struct {
	Kind         Kind
	OwnerID      string
	InstructorID string
	Published    bool
	Active       bool
	Enrolled     bool
}

// Course builds the resource description for a course.
func Course(c *models.Course, enrolled bool) Resource {
	return Resource{
		Kind:         KindCourse,
		InstructorID: c.InstructorID,
		Published:    c.Published,
		Active:       c.Active,
		Enrolled:     enrolled,
	}
}

type rule func(Actor, Resource) bool

var rules = map[Kind]map[Action]rule{
	KindCourse: {
		ActionView: func(a Actor, r Resource) bool {
			return a.IsAdmin() || r.isInstructor(a) || (r.Active && (r.Published || r.Enrolled))
		},
		ActionViewContent: func(a Actor, r Resource) bool {
			return a.IsAdmin() || r.isInstructor(a) || (r.Active && r.Enrolled)
		},
		ActionEdit: func(a Actor, r Resource) bool {
			return a.IsAdmin() || r.isInstructor(a)
		},
		ActionReport: func(a Actor, r Resource) bool {
			return a.IsAdmin() || r.isInstructor(a)
		},
		ActionEnroll: func(a Actor, r Resource) bool {
			return r.Active && r.Published && !r.isInstructor(a)
		},
	},
	KindAttempt: {
		ActionView: func(a Actor, r Resource) bool {
			return a.IsAdmin() || r.isOwner(a) || r.isInstructor(a)
		},
	},
	KindUser: {
		ActionView: func(a Actor, r Resource) bool {
			return a.IsAdmin() || r.isOwner(a)
		},
		ActionEdit: func(a Actor, r Resource) bool {
			return a.IsAdmin() || r.isOwner(a)
		},
		ActionManage: func(a Actor, _ Resource) bool {
			return a.IsAdmin()
		},
	},
	KindStudentRecord: {
		ActionView: func(a Actor, r Resource) bool {
			return a.IsAdmin() || r.isOwner(a) || r.isInstructor(a)
		},
		ActionEdit: func(a Actor, r Resource) bool {
			return a.IsAdmin() || r.isOwner(a)
		},
	},
}

// Allow reports whether actor may perform action on res. Unknown
// combinations and anonymous actors are denied.
func Allow(actor Actor, action Action, res Resource) bool {
	if actor.Anonymous() && !(res.Kind == KindCourse && action == ActionView) {
		return false
	}
	byAction, ok := rules[res.Kind]
	if !ok {
		return false
	}
	check, ok := byAction[action]
	if !ok {
		return false
	}
	return check(actor, res)
}

// Authorize is Allow expressed as an error for service code.
func Authorize(actor Actor, action Action, res Resource, message string) error {
	if Allow(actor, action, res) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, message)
}

func (r Resource) isOwner(a Actor) bool {
	return r.OwnerID != "" && r.OwnerID == a.UserID
}

func (r Resource) isInstructor(a Actor) bool {
	return r.InstructorID != "" && r.InstructorID == a.UserID
}
