package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/berguardian/core/report"
	"github.com/trezcool/berguardian/core/site"
	"github.com/trezcool/berguardian/core/staff"
	"github.com/trezcool/berguardian/core/student"
	"github.com/trezcool/berguardian/core/task"
	"github.com/trezcool/berguardian/core/user"
	"github.com/trezcool/berguardian/core/wizard"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sqlx.DB
	usrSvc    *user.Service
	stuSvc    *student.Service
	siteSvc   *site.Service
	staffSvc  *staff.Service
	taskSvc   *task.Service
	reportSvc *report.Service
	engine    *wizard.Engine
	uploader  wizard.Uploader
	out       io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "BER Guardian administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          helpRunE,
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(
		cli.migrateCmd(),
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.tasksCmd(),
		cli.wizardCmd(),
		cli.reportCmd(),
	)
	return root
}

// run executes the command line args, program name included.
func (cli *commandLine) run(args []string) error {
	if cli.out == nil {
		cli.out = os.Stdout
	}
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}

func helpRunE(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
	}
	_ = cmd.Help()
	return errHelp
}

// promptPassword reads a password without echoing it.
func (cli *commandLine) promptPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		_ = cmd.Usage()
		return "", errHelp
	}
	return strings.TrimSpace(string(pwd)), nil
}
