package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/berguardian/core"
)

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			if _, err := cli.usrSvc.SetPassword(cmd.Context(), core.CleanString(email, true /* lower */), pwd); err != nil {
				return err
			}
			fmt.Fprintln(cli.out, successStyle.Render("Password updated."))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "The user's email. The password will be prompted next.")
	return cmd
}
