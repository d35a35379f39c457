package report

import (
	"context"
	"os"
	"path/filepath"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/wizard"
)

// NewEngine loads the wizard at conf.WizardConfigPath, or the embedded one.
// Selecting a student fills in their dob and site.
func NewEngine(conf *core.Config, students StudentGetter) (*wizard.Engine, error) {
	var (
		cfg *wizard.Config
		err error
	)
	if conf.WizardConfigPath != "" {
		cfg, err = wizard.LoadConfig(os.DirFS(filepath.Dir(conf.WizardConfigPath)), filepath.Base(conf.WizardConfigPath))
	} else {
		cfg, err = wizard.DefaultConfig()
	}
	if err != nil {
		return nil, err
	}

	return wizard.NewEngine(cfg, wizard.WithAutofill("student_id", func(ctx context.Context, id string) (map[string]string, bool) {
		stu, err := students.Get(ctx, id)
		if err != nil {
			return nil, false
		}
		return map[string]string{"student_dob": stu.DOB, "site_id": stu.Site}, true
	})), nil
}
