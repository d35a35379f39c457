package main

import (
	"github.com/spf13/cobra"

	"github.com/trezcool/berguardian/storage/database"
)

var runMigrationsFunc = database.RunMigrations // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS]",
		Short: "Run a goose migration command",
		Long: `Run a goose migration command on the embedded migrations.

Commands: up, up-by-one, up-to VERSION, down, down-to VERSION, redo, reset, status, version,
create NAME [go|sql], fix.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return errHelp
			}
			return runMigrationsFunc(cli.db, args[0], args[1:]...)
		},
	}
}
