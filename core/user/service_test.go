package user_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/storage/database/dummydb"
	testutil "github.com/trezcool/darasa/tests"
)

type subscriberMock struct {
	mu     sync.Mutex
	emails []string
	err    error
}

func (s *subscriberMock) Subscribe(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = append(s.emails, email)
	return s.err
}

type fixture struct {
	repo user.Repository
	svc  user.Service
	sub  *subscriberMock
}

func setup(t *testing.T) fixture {
	t.Helper()
	conf := testutil.NewConfig()
	core.ParseEmailTemplates(conf, core.NewNopLogger())
	emailsvc.ResetSent()

	repo := dummydb.NewUserRepository(dummydb.Open())
	sub := new(subscriberMock)
	return fixture{
		repo: repo,
		svc:  user.NewServiceMock(repo, emailsvc.NewConsoleServiceMock(conf), sub, conf),
		sub:  sub,
	}
}

func TestService_SignUp(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.sub.err = errors.New("audience down")

	usr, err := f.svc.SignUp(ctx, user.NewUser{Name: "Amina", Email: " Amina@Example.com ", Password: "Str0ng!pass"})
	require.NoError(t, err)
	assert.Equal(t, "amina@example.com", usr.Email)
	assert.True(t, usr.IsActive)
	assert.Empty(t, usr.Roles)
	assert.NoError(t, usr.CheckPassword("Str0ng!pass"))

	// the audience failure did not fail the sign up
	assert.Equal(t, []string{"amina@example.com"}, f.sub.emails)

	err = f.svc.CheckEmailUniqueness(ctx, "amina@example.com")
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Fields[0].Field)
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	testutil.CreateUser(t, f.repo, "Active", "active@example.com", "pwd", nil, true)
	testutil.CreateUser(t, f.repo, "Inactive", "inactive@example.com", "pwd", nil, false)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown email", email: "nobody@example.com", pwd: "pwd", wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", email: "active@example.com", pwd: "nope", wantErr: user.ErrInvalidCredentials},
		{name: "deactivated", email: "inactive@example.com", pwd: "pwd", wantErr: user.ErrAccountDeactivated},
		{name: "valid", email: " Active@example.com", pwd: "pwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := f.svc.Authenticate(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.False(t, usr.LastLogin.IsZero())
		})
	}
}

func TestService_Roles(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	super := testutil.CreateUser(t, f.repo, "Super", "super@example.com", "pwd", []string{user.RoleSuperAdmin}, true)
	admin := testutil.CreateUser(t, f.repo, "Admin", "admin@example.com", "pwd", []string{user.RoleAdmin}, true)
	editor := testutil.CreateUser(t, f.repo, "Editor", "editor@example.com", "pwd", []string{user.RoleEditor}, true)
	student := testutil.CreateUser(t, f.repo, "Student", "student@example.com", "pwd", nil, true)

	t.Run("grant", func(t *testing.T) {
		tests := []struct {
			name    string
			actor   user.User
			id      string
			role    string
			wantErr error
		}{
			{name: "editor cannot grant", actor: editor, id: student.ID, role: user.RoleEditor, wantErr: user.ErrRoleNotAllowed},
			{name: "admin cannot grant admin", actor: admin, id: student.ID, role: user.RoleAdmin, wantErr: user.ErrRoleNotAllowed},
			{name: "unknown user", actor: super, id: "missing", role: user.RoleEditor, wantErr: user.ErrNotFound},
			{name: "admin grants editor", actor: admin, id: student.ID, role: user.RoleEditor},
			{name: "granting twice is a no-op", actor: admin, id: student.ID, role: user.RoleEditor},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				usr, err := f.svc.GrantRole(ctx, tt.actor, tt.id, tt.role)
				if tt.wantErr != nil {
					assert.Equal(t, tt.wantErr, err)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, []string{tt.role}, usr.Roles)
			})
		}
	})

	t.Run("revoke", func(t *testing.T) {
		_, err := f.svc.RevokeRole(ctx, super, super.ID, user.RoleSuperAdmin)
		assert.Equal(t, user.ErrRevokeOwnSuper, err)

		other, err := f.svc.GrantRole(ctx, super, admin.ID, user.RoleSuperAdmin)
		require.NoError(t, err)
		assert.True(t, other.IsSuperAdmin())

		// two super admins: one may go
		usr, err := f.svc.RevokeRole(ctx, super, admin.ID, user.RoleSuperAdmin)
		require.NoError(t, err)
		assert.False(t, usr.IsSuperAdmin())

		// the last one may not
		_, err = f.svc.GrantRole(ctx, super, editor.ID, user.RoleSuperAdmin)
		require.NoError(t, err)
		promoted, err := f.svc.GetByID(ctx, editor.ID)
		require.NoError(t, err)
		_, err = f.svc.RevokeRole(ctx, promoted, super.ID, user.RoleSuperAdmin)
		require.NoError(t, err)
		_, err = f.svc.RevokeRole(ctx, super, editor.ID, user.RoleSuperAdmin)
		assert.Equal(t, user.ErrLastSuperAdmin, err)

		_, err = f.svc.RevokeRole(ctx, admin, student.ID, user.RoleEditor)
		require.NoError(t, err)
		usr, err = f.svc.GetByID(ctx, student.ID)
		require.NoError(t, err)
		assert.False(t, usr.IsStaff())
	})
}

func TestService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	usr := testutil.CreateUser(t, f.repo, "Forgetful", "forgetful@example.com", "old-pwd", nil, true)
	testutil.CreateUser(t, f.repo, "Gone", "gone@example.com", "pwd", nil, false)

	assert.Equal(t, user.ErrNotFound, f.svc.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Equal(t, user.ErrNotFound, f.svc.RequestPasswordReset(ctx, "gone@example.com"))

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "Forgetful@example.com"))
	sent := emailsvc.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "forgetful@example.com", msg.To[0].Address)
	data := msg.TemplateData.(map[string]interface{})
	uid, token := data["UID"].(string), data["Token"].(string)
	assert.Contains(t, msg.TextContent, "/password-reset/"+uid+"/"+token)

	err := f.svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: "bad-token-value", Password: "N3w!password"})
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))

	reset := user.ResetUserPassword{UID: uid, Token: token, Password: "N3w!password", PasswordConfirm: "N3w!password"}
	require.NoError(t, f.svc.ResetPassword(ctx, reset))
	got, err := f.svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("N3w!password"))

	// tokens are single use: the password changed
	err = f.svc.ResetPassword(ctx, reset)
	assert.True(t, errors.As(err, &verr))
}
