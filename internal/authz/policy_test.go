package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

func TestAuthorize(t *testing.T) {
	admin := Subject{ID: uuid.New(), Role: types.RoleAdmin}
	profesor := Subject{ID: uuid.New(), Role: types.RoleProfesor}
	student := Subject{ID: uuid.New(), Role: types.RoleUser}

	ownedByProfesor := Resource{OwnerID: profesor.ID}
	ownedByStudent := Resource{OwnerID: student.ID}
	ownedBySomeoneElse := Resource{OwnerID: uuid.New()}

	tests := []struct {
		name      string
		requester Subject
		action    Action
		resource  Resource
		want      bool
	}{
		{"admin creates course", admin, CourseCreate, Resource{}, true},
		{"profesor creates course", profesor, CourseCreate, Resource{}, true},
		{"student cannot create course", student, CourseCreate, Resource{}, false},

		{"admin updates any course", admin, CourseUpdate, ownedBySomeoneElse, true},
		{"owner updates own course", profesor, CourseUpdate, ownedByProfesor, true},
		{"profesor cannot update foreign course", profesor, CourseUpdate, ownedBySomeoneElse, false},

		{"admin deletes course", admin, CourseDelete, ownedBySomeoneElse, true},
		{"owner profesor cannot delete course", profesor, CourseDelete, ownedByProfesor, false},

		{"admin lists all courses", admin, CourseListAll, Resource{}, true},
		{"profesor cannot list all courses", profesor, CourseListAll, Resource{}, false},

		{"user updates self", student, UserUpdate, ownedByStudent, true},
		{"user cannot update other", student, UserUpdate, ownedBySomeoneElse, false},
		{"admin updates other", admin, UserUpdate, ownedBySomeoneElse, true},

		{"user deletes self", student, UserDelete, ownedByStudent, true},
		{"user cannot delete other", student, UserDelete, ownedBySomeoneElse, false},
		{"profesor admin-deletes other", profesor, UserDeleteAny, ownedBySomeoneElse, true},
		{"student cannot admin-delete", student, UserDeleteAny, ownedByStudent, false},

		{"profesor reaches admin surface", profesor, AdminAccess, Resource{}, true},
		{"student kept out of admin surface", student, AdminAccess, Resource{}, false},

		{"anonymous denied", Subject{}, CourseCreate, Resource{}, false},
		{"unknown action denied", admin, Action("course:teleport"), Resource{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Authorize(tt.requester, tt.action, tt.resource)
			assert.Equal(t, tt.want, decision.Allowed, decision.Reason)
			if tt.want {
				assert.NoError(t, decision.Err())
			} else {
				assert.ErrorIs(t, decision.Err(), ErrForbidden)
			}
		})
	}
}

func TestOwnerMatchIgnoresNilResource(t *testing.T) {
	// A user with a nil owner on the resource must not match itself by accident.
	student := Subject{ID: uuid.New(), Role: types.RoleUser}
	assert.False(t, Authorize(student, UserUpdate, Resource{}).Allowed)
}
