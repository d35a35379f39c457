package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		email, name string
		isAdmin     bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or reactivate and update an existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || name == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd.Context(), name, email, pwd, isAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cli.out, successStyle.Render(fmt.Sprintf("User %s (%s) saved.", usr.Email, usr.Role)))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The user's email. The password will be prompted next.")
	cmd.Flags().StringVar(&name, "name", "", "The user's full name.")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant the admin role.")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(ctx context.Context, name, email, pwd string, isAdmin bool) (user.User, error) {
	email = core.CleanString(email, true /* lower */)
	role := user.RoleStaff
	if isAdmin {
		role = user.RoleAdmin
	}

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return user.User{}, err
		}
		return cli.usrSvc.Create(ctx, user.NewUser{
			FullName:        name,
			Email:           email,
			Role:            role,
			Password:        pwd,
			PasswordConfirm: pwd,
		})
	}

	active := true
	if _, err = cli.usrSvc.Update(ctx, usr.ID, user.UpdateUser{FullName: name, Email: email, Role: role, IsActive: &active}); err != nil {
		return user.User{}, err
	}
	return cli.usrSvc.SetPassword(ctx, email, pwd)
}
