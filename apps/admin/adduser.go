package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addUser updates or creates an active user.User, granting role when given.
func (cli *commandLine) addUser(name, email, pwd, role string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)

	var roles []string
	if role != "" {
		if user.RolePriority(role) == 0 {
			return errInvalidRole
		}
		roles = append(roles, role)
	}

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		_, err = cli.usrSvc.Create(ctx, user.NewUser{Name: core.CleanString(name), Email: email, Password: pwd}, roles...)
		return err
	}

	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	usr.IsActive = true
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	for _, r := range roles {
		if !usr.HasRole(r) {
			if err := cli.usrRepo.AddUserRole(ctx, usr.ID, r); err != nil {
				return err
			}
		}
	}
	return nil
}
