package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/report"
	"github.com/trezcool/berguardian/core/site"
	"github.com/trezcool/berguardian/core/staff"
	"github.com/trezcool/berguardian/core/student"
	"github.com/trezcool/berguardian/core/wizard"
)

var runFormFunc = func(form *huh.Form) error { return form.Run() } // mockable

var errAborted = errors.New("report aborted")

func (cli *commandLine) reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Fill in BER and Incident Reports",
		RunE:  helpRunE,
	}

	var actor, from string
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Walk through the report wizard, step by step",
		Long: `Walk through the report wizard, step by step.

A step is only left once its required fields are filled in. The report can be saved as a draft
whenever a step is incomplete. --from seeds the wizard with the JSON form state of a draft.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if actor == "" {
				_ = cmd.Usage()
				return errHelp
			}
			usr, err := cli.usrSvc.GetByEmail(cmd.Context(), core.CleanString(actor, true /* lower */))
			if err != nil {
				return errors.Wrap(err, "resolving --as")
			}

			initial := wizard.FormState{}
			if from != "" {
				if initial, err = cli.readState(from); err != nil {
					return err
				}
			}

			rec, err := cli.newReport(cmd.Context(), usr.Email, initial)
			if err != nil {
				return err
			}
			cli.printReport(rec)
			return nil
		},
	}
	newCmd.Flags().StringVar(&actor, "as", "", "Email of the user filing the report.")
	newCmd.Flags().StringVar(&from, "from", "", "JSON file holding an initial form state.")

	cmd.AddCommand(newCmd)
	return cmd
}

func (cli *commandLine) readState(path string) (wizard.FormState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading form state")
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decoding form state")
	}
	return wizard.Normalize(cli.engine.Config(), raw), nil
}

// newReport runs the wizard from initial and saves the report.
func (cli *commandLine) newReport(ctx context.Context, actor string, initial wizard.FormState) (report.Record, error) {
	options, err := cli.optionSources(ctx)
	if err != nil {
		return report.Record{}, err
	}
	cfg := cli.engine.Config()
	state := cli.engine.Initialize(initial)
	status := report.StatusSubmitted

	for step := 0; ; {
		st, _ := cfg.Step(step)
		fmt.Fprintln(cli.out, stepStyle.Render(fmt.Sprintf("Step %d/%d: %s", step+1, cfg.StepCount(), st.Title)))
		if state, err = cli.fillStep(ctx, st, state, options); err != nil {
			return report.Record{}, err
		}

		next, violations := cli.engine.Next(step, state)
		if len(violations) > 0 {
			fmt.Fprintln(cli.out, errorStyle.Render("Required: "+strings.Join(violations.Labels(), ", ")))
			fix := true
			if err := cli.confirm("Complete this step now?", "Fix", "Save draft", &fix); err != nil {
				return report.Record{}, err
			}
			if fix {
				continue
			}
			status = report.StatusDraft
			break
		}
		if next == step {
			break
		}
		step = next
	}

	save := true
	if err := cli.confirm(fmt.Sprintf("Save the report as %s?", status), "Save", "Discard", &save); err != nil {
		return report.Record{}, err
	}
	if !save {
		return report.Record{}, errAborted
	}
	return cli.reportSvc.Save(ctx, actor, report.SaveRequest{Token: uuid.NewString(), State: state, Status: status})
}

// fillStep shows the step until no answer reveals a new field.
func (cli *commandLine) fillStep(ctx context.Context, step wizard.Step, state wizard.FormState, options map[string][]huh.Option[string]) (wizard.FormState, error) {
	for {
		sf := newStepForm(ctx, cli.engine, cli.uploader, state, options)
		sf.render(step)
		if len(sf.fields) == 0 {
			return state, nil
		}
		if err := runFormFunc(huh.NewForm(sf.group())); err != nil {
			return state, err
		}

		next, err := sf.apply(state)
		if err != nil {
			fmt.Fprintln(cli.out, errorStyle.Render(err.Error()))
		}
		state = next
		if err == nil && !sf.again && !sf.revealed(step, state) {
			return state, nil
		}
	}
}

func (cli *commandLine) confirm(title, yes, no string, v *bool) error {
	return runFormFunc(huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Affirmative(yes).Negative(no).Value(v),
	)))
}

// optionSources lists the choices of the selects filled from the directory.
func (cli *commandLine) optionSources(ctx context.Context) (map[string][]huh.Option[string], error) {
	active := true
	students, err := cli.stuSvc.Query(ctx, student.QueryFilter{Active: &active})
	if err != nil {
		return nil, errors.Wrap(err, "listing students")
	}
	sites, err := cli.siteSvc.Query(ctx, site.QueryFilter{Active: &active})
	if err != nil {
		return nil, errors.Wrap(err, "listing sites")
	}
	members, err := cli.staffSvc.Query(ctx, staff.QueryFilter{Active: &active})
	if err != nil {
		return nil, errors.Wrap(err, "listing staff")
	}

	options := map[string][]huh.Option[string]{
		wizard.OptionsFromStudents: make([]huh.Option[string], 0, len(students)),
		wizard.OptionsFromSites:    make([]huh.Option[string], 0, len(sites)),
		wizard.OptionsFromStaff:    make([]huh.Option[string], 0, len(members)),
	}
	for _, stu := range students {
		options[wizard.OptionsFromStudents] = append(options[wizard.OptionsFromStudents], huh.NewOption(stu.DisplayName(), stu.ID))
	}
	for _, s := range sites {
		options[wizard.OptionsFromSites] = append(options[wizard.OptionsFromSites], huh.NewOption(s.Name, s.Name))
	}
	for _, m := range members {
		options[wizard.OptionsFromStaff] = append(options[wizard.OptionsFromStaff], huh.NewOption(m.Identifier(), m.FullName()))
	}
	return options, nil
}

func (cli *commandLine) printReport(rec report.Record) {
	common := rec.Common()
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s %s", rec.Type.Label(), common.ID)),
		fmt.Sprintf("Status:   %s", common.Status),
		fmt.Sprintf("Student:  %s", common.StudentName),
		fmt.Sprintf("Site:     %s", common.Site),
		fmt.Sprintf("Incident: %s at %s", common.IncidentDate, common.Location),
	}
	fmt.Fprintln(cli.out, summaryStyle.Render(strings.Join(lines, "\n")))
}
