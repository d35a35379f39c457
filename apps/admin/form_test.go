package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/berguardian/core/wizard"
	"github.com/trezcool/berguardian/tests"
)

func stepWith(t *testing.T, cfg *wizard.Config, key string) wizard.Step {
	t.Helper()
	for i := 0; i < cfg.StepCount(); i++ {
		step, _ := cfg.Step(i)
		for _, f := range step.Fields {
			if f.Key == key {
				return step
			}
		}
	}
	t.Fatalf("no step holds %q", key)
	return wizard.Step{}
}

func renderStep(t *testing.T, cli *commandLine, key string, state wizard.FormState) (*stepForm, wizard.Step) {
	t.Helper()
	step := stepWith(t, cli.engine.Config(), key)
	sf := newStepForm(context.Background(), cli.engine, cli.uploader, state, map[string][]huh.Option[string]{})
	sf.render(step)
	return sf, step
}

func Test_stepForm_apply(t *testing.T) {
	cli := setup(t)
	stu := testutil.CreateStudent(t, stuRepo, "stu-1", "Ada", "Lovelace", "8", "Lincoln Elementary")
	state := cli.engine.Initialize(nil)

	sf, step := renderStep(t, cli, "location", state)
	require.NotEmpty(t, sf.fields)
	assert.False(t, sf.shown["antecedent"], "incident only fields are hidden")

	*sf.strs["location"] = "  Library "
	*sf.strs["student_id"] = stu.ID
	*sf.strs["report_type"] = "incident_report"

	next, err := sf.apply(state)
	require.NoError(t, err)
	assert.Equal(t, "Library", next.String("location"))
	assert.Equal(t, "2010-05-01", next.String("student_dob"), "autofilled")
	assert.Equal(t, "Lincoln Elementary", next.String("site_id"), "autofilled and not cleared by the untouched site")
	assert.True(t, sf.revealed(step, next), "incident only fields are now visible")
	assert.Empty(t, state.String("location"), "input state is untouched")
}

func Test_stepForm_repeater(t *testing.T) {
	cli := setup(t)
	state := cli.engine.Initialize(nil)
	require.Empty(t, state.Items("staff_involved"))

	sf, _ := renderStep(t, cli, "staff_involved", state)
	next, err := sf.apply(state)
	require.NoError(t, err)
	assert.False(t, sf.again)
	assert.Empty(t, next.Items("staff_involved"))

	*sf.more["staff_involved"] = true
	next, err = sf.apply(state)
	require.NoError(t, err)
	assert.True(t, sf.again, "the step is shown again for the new entry")
	require.Len(t, next.Items("staff_involved"), 1)

	sf, _ = renderStep(t, cli, "staff_involved", next)
	require.Len(t, sf.items["staff_involved"], 1)
	*sf.items["staff_involved"][0]["name"] = " Mr. Smith "
	next, err = sf.apply(next)
	require.NoError(t, err)
	assert.Equal(t, "Mr. Smith", next.Items("staff_involved")[0]["name"])
}

func Test_stepForm_attachments(t *testing.T) {
	cli := setup(t)
	state := cli.engine.Initialize(nil)
	dir := t.TempDir()
	doc := filepath.Join(dir, "plan.pdf")
	require.NoError(t, os.WriteFile(doc, []byte("%PDF-1.4"), 0o600))

	sf, _ := renderStep(t, cli, "attachments", state)
	*sf.strs["attachments"] = filepath.Join(dir, "virus.exe")
	next, err := sf.apply(state)
	require.Error(t, err)
	assert.Empty(t, next.Attachments("attachments"))

	sf, _ = renderStep(t, cli, "attachments", state)
	*sf.strs["attachments"] = doc
	next, err = sf.apply(state)
	require.NoError(t, err)
	atts := next.Attachments("attachments")
	require.Len(t, atts, 1)
	assert.Equal(t, "plan.pdf", atts[0].Name)
	assert.Equal(t, int64(8), atts[0].Size)
	assert.NotEmpty(t, atts[0].URL)
}

func Test_localFiles(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(doc, []byte("calm down corner"), 0o600))
	f := &wizard.Field{Kind: wizard.KindFileUpload, Key: "attachments", AcceptTypes: ".pdf,.txt"}

	tests := []struct {
		name      string
		paths     string
		wantCount int
		wantErr   string
	}{
		{name: "nothing", paths: " , "},
		{name: "one file", paths: doc, wantCount: 1},
		{name: "rejected type", paths: doc + ", " + filepath.Join(dir, "virus.exe"), wantErr: "file type not accepted: virus.exe"},
		{name: "missing file", paths: filepath.Join(dir, "gone.pdf"), wantErr: "gone.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := localFiles(f, tt.paths)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, files, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, "notes.txt", files[0].Name)
				assert.Equal(t, int64(16), files[0].Size)
				assert.True(t, strings.HasPrefix(files[0].Type, "text/plain"))
			}
		})
	}
}
