package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trezcool/berguardian/core/wizard"
)

func (cli *commandLine) wizardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Inspect wizard configurations",
		RunE:  helpRunE,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [PATH]",
		Short: "Validate a wizard config file, or the embedded one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg *wizard.Config
				err error
			)
			if len(args) == 1 {
				cfg, err = wizard.LoadConfig(os.DirFS(filepath.Dir(args[0])), filepath.Base(args[0]))
			} else {
				cfg, err = wizard.DefaultConfig()
			}

			var cfgErr *wizard.ConfigError
			if errors.As(err, &cfgErr) {
				for _, problem := range cfgErr.Problems {
					fmt.Fprintln(cli.out, errorStyle.Render("  - "+problem))
				}
			}
			if err != nil {
				return err
			}
			cli.printWizard(cfg)
			return nil
		},
	})
	return cmd
}

func (cli *commandLine) printWizard(cfg *wizard.Config) {
	fmt.Fprintln(cli.out, titleStyle.Render(fmt.Sprintf("%s (%s)", cfg.Title, cfg.ID)))
	for i := 0; i < cfg.StepCount(); i++ {
		step, _ := cfg.Step(i)
		required := 0
		for _, f := range step.Fields {
			if f.Required {
				required++
			}
		}
		fmt.Fprintf(cli.out, "%d. %s %s\n", i+1, step.Title,
			mutedStyle.Render(fmt.Sprintf("[%d fields, %d required]", len(step.Fields), required)))
	}
	fmt.Fprintln(cli.out, successStyle.Render(fmt.Sprintf("OK: %d steps, %d fields", cfg.StepCount(), len(cfg.Fields()))))
}

func fieldTitle(f *wizard.Field) string {
	title := strings.TrimSpace(f.DisplayLabel())
	if f.Required {
		title += " *"
	}
	return title
}
