package main

import (
	"context"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// grantRole bypasses the actor checks of user.Service: it bootstraps the first super admins.
// The last super admin still cannot be revoked.
func (cli *commandLine) grantRole(email, role string, revoke bool) error {
	ctx := context.Background()
	role = core.CleanString(role, true /* lower */)
	if user.RolePriority(role) == 0 {
		return errInvalidRole
	}

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if !revoke {
		if usr.HasRole(role) {
			return nil
		}
		return cli.usrRepo.AddUserRole(ctx, usr.ID, role)
	}

	if !usr.HasRole(role) {
		return nil
	}
	if role == user.RoleSuperAdmin {
		count, err := cli.usrRepo.CountUsersWithRole(ctx, user.RoleSuperAdmin)
		if err != nil {
			return err
		}
		if count <= 1 {
			return user.ErrLastSuperAdmin
		}
	}
	return cli.usrRepo.RemoveUserRole(ctx, usr.ID, role)
}
