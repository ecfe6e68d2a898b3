package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrRoleNotAllowed     = errors.New("not enough rights to manage this role")
	ErrLastSuperAdmin     = errors.New("cannot revoke the last super_admin")
	ErrRevokeOwnSuper     = errors.New("cannot revoke your own super_admin role")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		FilterUsers(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		AddUserRole(ctx context.Context, id, role string) error
		RemoveUserRole(ctx context.Context, id, role string) error
		CountUsersWithRole(ctx context.Context, role string) (int, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	// Subscriber adds new accounts to the marketing audience.
	Subscriber interface {
		Subscribe(ctx context.Context, email string) error
	}

	Service interface {
		CheckEmailUniqueness(ctx context.Context, email string, exclUsers ...User) error
		SignUp(ctx context.Context, nu NewUser) (User, error)
		// Create adds an account without the sign-up side effects (admin CLI).
		Create(ctx context.Context, nu NewUser, roles ...string) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		SetPassword(ctx context.Context, usr User, pwd string) (User, error)
		Delete(ctx context.Context, ids ...string) error
		GrantRole(ctx context.Context, actor User, id, role string) (User, error)
		RevokeRole(ctx context.Context, actor User, id, role string) (User, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	service struct {
		repo       Repository
		mailSvc    core.EmailService
		subscriber Subscriber
		logger     core.Logger
		tokens     tokenGenerator
		goFunc     func(func()) // runs side effects
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, subscriber Subscriber, logger core.Logger, conf *core.Config) Service {
	return &service{
		repo:       repo,
		mailSvc:    mailSvc,
		subscriber: subscriber,
		logger:     logger,
		tokens:     tokenGenerator{secret: []byte(conf.SecretKey), timeout: conf.Server.PasswordResetTimeoutDelta},
		goFunc:     func(f func()) { go f() },
	}
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func (svc *service) SignUp(ctx context.Context, nu NewUser) (User, error) {
	usr, err := svc.Create(ctx, nu)
	if err != nil {
		return User{}, err
	}

	// audience sync never fails the sign up
	if svc.subscriber != nil {
		email := usr.Email
		svc.goFunc(func() {
			if err := svc.subscriber.Subscribe(context.Background(), email); err != nil {
				svc.logger.Warn(fmt.Sprintf("subscribing %s: %v", email, err), err)
			}
		})
	}
	return usr, nil
}

func (svc *service) Create(ctx context.Context, nu NewUser, roles ...string) (User, error) {
	createdAt := now()
	usr := User{
		Name:      nu.Name,
		Email:     core.CleanString(nu.Email, true /* lower */),
		IsActive:  true,
		Roles:     roles,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	usr.LastLogin = now()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	filter.Clean()
	return svc.repo.FilterUsers(ctx, filter, ordering...)
}

// Update applies uu, already validated against usr.
func (svc *service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Name = uu.Name
	usr.Email = uu.Email
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = now()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

func (svc *service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = now()
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

// canManageRole: admins manage editors, super admins manage every role.
func canManageRole(actor User, role string) bool {
	if actor.IsSuperAdmin() {
		return true
	}
	return actor.IsAdminOrAbove() && RolePriority(role) < MaxRolePriority(actor.Roles)
}

func (svc *service) GrantRole(ctx context.Context, actor User, id, role string) (User, error) {
	if !canManageRole(actor, role) {
		return User{}, ErrRoleNotAllowed
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if usr.HasRole(role) {
		return usr, nil
	}
	if err := svc.repo.AddUserRole(ctx, usr.ID, role); err != nil {
		return User{}, errors.Wrap(err, "adding role")
	}
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) RevokeRole(ctx context.Context, actor User, id, role string) (User, error) {
	if !canManageRole(actor, role) {
		return User{}, ErrRoleNotAllowed
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !usr.HasRole(role) {
		return usr, nil
	}
	if role == RoleSuperAdmin {
		if usr.ID == actor.ID {
			return User{}, ErrRevokeOwnSuper
		}
		count, err := svc.repo.CountUsersWithRole(ctx, RoleSuperAdmin)
		if err != nil {
			return User{}, errors.Wrap(err, "counting super admins")
		}
		if count <= 1 {
			return User{}, ErrLastSuperAdmin
		}
	}
	if err := svc.repo.RemoveUserRole(ctx, usr.ID, role); err != nil {
		return User{}, errors.Wrap(err, "removing role")
	}
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	svc.goFunc(func() { svc.sendPasswordResetMail(usr) })
	return nil
}

func (svc *service) sendPasswordResetMail(usr User) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": svc.tokens.makeToken(usr),
		},
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	id, err := decodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(ErrInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(ErrInvalidToken)
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err := svc.tokens.verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(err)
	}
	_, err = svc.SetPassword(ctx, usr, data.Password)
	return err
}

// now is truncated to the database precision: reset tokens sign LastLogin.
func now() time.Time {
	return nowFunc().UTC().Truncate(time.Microsecond)
}
