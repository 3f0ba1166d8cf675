package user_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/course-enrollment-server/internal/authz"
	"github.com/mo-amir99/course-enrollment-server/internal/features/user"
	"github.com/mo-amir99/course-enrollment-server/internal/testutil"
	"github.com/mo-amir99/course-enrollment-server/pkg/apperrors"
	"github.com/mo-amir99/course-enrollment-server/pkg/pagination"
	"github.com/mo-amir99/course-enrollment-server/pkg/types"
)

func strPtr(s string) *string { return &s }

func TestCreateRejectsDuplicates(t *testing.T) {
	db := testutil.NewDB(t)
	existing := testutil.CreateUser(t, db, testutil.WithUsername("ana"))

	tests := []struct {
		name    string
		input   user.CreateInput
		wantErr error
	}{
		{
			name:    "email taken, case-insensitive",
			input:   user.CreateInput{Name: "A", Username: "other", Email: "ANA@example.com", Password: "secret123"},
			wantErr: user.ErrEmailTaken,
		},
		{
			name:    "username taken",
			input:   user.CreateInput{Name: "A", Username: existing.Username, Email: "new@example.com", Password: "secret123"},
			wantErr: user.ErrUsernameTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := user.Count(db)
			require.NoError(t, err)

			_, err = user.Create(db, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)

			after, err := user.Count(db)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestCreateValidatesAndHashes(t *testing.T) {
	db := testutil.NewDB(t)

	_, err := user.Create(db, user.CreateInput{Name: "A", Username: "bob", Email: "bob@example.com", Password: "123"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields(), "password")

	created, err := user.Create(db, user.CreateInput{Name: "Bob", Username: "bob", Email: " Bob@Example.com ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", created.Email)
	assert.Equal(t, types.RoleUser, created.Role)
	assert.NotEqual(t, "secret123", created.Password)
	assert.True(t, created.ComparePassword("secret123"))
	assert.False(t, created.ComparePassword("wrong"))
}

func TestFindByLoginMatchesEmailOrUsername(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, testutil.WithUsername("carla"))

	byEmail, err := user.FindByLogin(db, "CARLA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byUsername, err := user.FindByLogin(db, "carla")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byUsername.ID)

	_, err = user.FindByLogin(db, "nobody")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestUpdateAppliesChangedFieldsOnly(t *testing.T) {
	db := testutil.NewDB(t)
	target := testutil.CreateUser(t, db, testutil.WithUsername("dave"))
	other := testutil.CreateUser(t, db, testutil.WithUsername("erin"))
	allow := authz.Decision{Allowed: true}

	t.Run("denied decision", func(t *testing.T) {
		_, err := user.Update(db, target, user.UpdateInput{Name: strPtr("X")}, authz.Decision{Reason: "no"})
		assert.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("username taken by someone else", func(t *testing.T) {
		_, err := user.Update(db, target, user.UpdateInput{Username: strPtr(other.Username)}, allow)
		assert.ErrorIs(t, err, user.ErrUsernameTaken)
	})

	t.Run("email taken by someone else", func(t *testing.T) {
		_, err := user.Update(db, target, user.UpdateInput{Email: strPtr(other.Email)}, allow)
		assert.ErrorIs(t, err, user.ErrEmailTaken)
	})

	t.Run("own values and blanks are ignored", func(t *testing.T) {
		updated, err := user.Update(db, target, user.UpdateInput{
			Username: strPtr(target.Username),
			Lastname: strPtr("   "),
			Name:     strPtr("David"),
		}, allow)
		require.NoError(t, err)
		assert.Equal(t, "David", updated.Name)
		assert.Equal(t, target.Lastname, updated.Lastname)
		assert.Equal(t, target.Username, updated.Username)
	})

	t.Run("oversized names are rejected", func(t *testing.T) {
		long := strings.Repeat("n", 101)
		for _, input := range []user.UpdateInput{{Name: strPtr(long)}, {Lastname: strPtr(long)}} {
			_, err := user.Update(db, target, input, allow)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, appErr.StatusCode())
		}

		reloaded, err := user.Get(db, target.ID)
		require.NoError(t, err)
		assert.NotEqual(t, long, reloaded.Name)
	})

	t.Run("short username is accepted", func(t *testing.T) {
		updated, err := user.Update(db, target, user.UpdateInput{Username: strPtr("dv")}, allow)
		require.NoError(t, err)
		assert.Equal(t, "dv", updated.Username)
	})

	t.Run("invalid role", func(t *testing.T) {
		role := types.Role("root")
		_, err := user.Update(db, target, user.UpdateInput{Role: &role}, allow)
		assert.ErrorIs(t, err, user.ErrInvalidRole)
	})
}

func TestDeleteRequiresDecision(t *testing.T) {
	db := testutil.NewDB(t)
	target := testutil.CreateUser(t, db)

	_, err := user.Delete(db, target, authz.Decision{Reason: "no"})
	assert.ErrorIs(t, err, authz.ErrForbidden)

	summary, err := user.Delete(db, target, authz.Decision{Allowed: true})
	require.NoError(t, err)
	assert.Equal(t, target.ID, summary.ID)
	assert.Equal(t, target.Email, summary.Email)

	_, err = user.Get(db, target.ID)
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	_, err = user.Delete(db, target, authz.Decision{Allowed: true})
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestListSearchesAcrossFields(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateUser(t, db, testutil.WithUsername("frank"))
	testutil.CreateUser(t, db, testutil.WithUsername("grace"))

	users, total, err := user.List(db, user.ListFilters{Search: "FRA"}, pagination.Parse("", ""))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "frank", users[0].Username)

	_, total, err = user.List(db, user.ListFilters{}, pagination.Parse("1", "1"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestGetUnknownID(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := user.Get(db, uuid.New())
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}
