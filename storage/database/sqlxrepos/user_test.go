package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database/sqlxrepos"
	testutil "github.com/trezcool/darasa/tests"
)

func userEmails(users []user.User) []string {
	emails := make([]string, 0, len(users))
	for _, u := range users {
		emails = append(emails, u.Email)
	}
	return emails
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := sqlxrepos.NewUserRepository(testutil.PrepareDB(t))

	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	alice := testutil.CreateUser(t, repo, "Alice Doe", "alice@example.com", "pwd", []string{user.RoleSuperAdmin}, true, day)
	bob := testutil.CreateUser(t, repo, "Bob Smith", "bob@example.com", "pwd", []string{user.RoleEditor}, true, day.AddDate(0, 0, 1))
	carl := testutil.CreateUser(t, repo, "Carl Doe", "carl@example.com", "pwd", nil, false, day.AddDate(0, 0, 2))

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.Email)
		assert.Equal(t, []string{user.RoleSuperAdmin}, got.Roles)
		assert.True(t, got.CreatedAt.Equal(day))
		assert.True(t, got.LastLogin.IsZero())
		assert.NoError(t, got.CheckPassword("pwd"))

		got, err = repo.GetUserByEmail(ctx, "carl@example.com")
		require.NoError(t, err)
		assert.Equal(t, carl.ID, got.ID)
		assert.Equal(t, []string{}, got.Roles)

		_, err = repo.GetUserByID(ctx, "missing")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("email uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(ctx, "bob@example.com"))
		assert.NoError(t, repo.CheckEmailUniqueness(ctx, "bob@example.com", bob))
		assert.NoError(t, repo.CheckEmailUniqueness(ctx, "new@example.com"))
	})

	isActive := true
	tests := []struct {
		name     string
		filter   user.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all, newest first", want: []string{carl.Email, bob.Email, alice.Email}},
		{name: "search", filter: user.QueryFilter{Search: "doe"}, want: []string{carl.Email, alice.Email}},
		{name: "roles", filter: user.QueryFilter{Roles: []string{user.RoleEditor}}, want: []string{bob.Email}},
		{name: "staff", filter: user.QueryFilter{StaffOnly: true}, want: []string{bob.Email, alice.Email}},
		{name: "active", filter: user.QueryFilter{IsActive: &isActive}, want: []string{bob.Email, alice.Email}},
		{
			name:   "created range",
			filter: user.QueryFilter{CreatedFrom: day.Add(time.Hour), CreatedTo: day.AddDate(0, 0, 2)},
			want:   []string{carl.Email, bob.Email},
		},
		{
			name:     "ordering",
			ordering: []core.DBOrdering{{Field: "name", Ascending: true}},
			want:     []string{alice.Email, bob.Email, carl.Email},
		},
		{
			name:     "unknown ordering is ignored",
			ordering: []core.DBOrdering{{Field: "password_hash; DROP TABLE users", Ascending: true}},
			want:     []string{carl.Email, bob.Email, alice.Email},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := repo.FilterUsers(ctx, tt.filter, tt.ordering...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, userEmails(users))
		})
	}

	t.Run("update", func(t *testing.T) {
		upd := carl
		upd.Name = "Carl D."
		upd.IsActive = true
		upd.LastLogin = day.AddDate(0, 1, 0)
		_, err := repo.UpdateUser(ctx, upd)
		require.NoError(t, err)

		got, err := repo.GetUserByID(ctx, carl.ID)
		require.NoError(t, err)
		assert.Equal(t, "Carl D.", got.Name)
		assert.True(t, got.IsActive)
		assert.True(t, got.LastLogin.Equal(upd.LastLogin))

		_, err = repo.UpdateUser(ctx, user.User{ID: "missing"})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("roles", func(t *testing.T) {
		require.NoError(t, repo.AddUserRole(ctx, bob.ID, user.RoleSuperAdmin))
		require.NoError(t, repo.AddUserRole(ctx, bob.ID, user.RoleSuperAdmin)) // no-op

		count, err := repo.CountUsersWithRole(ctx, user.RoleSuperAdmin)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		require.NoError(t, repo.RemoveUserRole(ctx, bob.ID, user.RoleSuperAdmin))
		got, err := repo.GetUserByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{user.RoleEditor}, got.Roles)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteUsersByID(ctx, bob.ID, carl.ID))
		users, err := repo.FilterUsers(ctx, user.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{alice.Email}, userEmails(users))

		count, err := repo.CountUsersWithRole(ctx, user.RoleEditor)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
