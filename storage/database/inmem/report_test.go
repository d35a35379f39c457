package inmemdb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/berguardian/core/report"
	"github.com/trezcool/berguardian/core/wizard"
	inmemdb "github.com/trezcool/berguardian/storage/database/inmem"
)

func TestReportRepository_detached(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewReportRepository(inmemdb.Open())

	age := 14
	rec, err := repo.CreateReport(ctx, report.Record{
		Type: report.TypeBER,
		BER: &report.BER{
			Common: report.Common{
				ID:            "rep-1",
				Status:        report.StatusDraft,
				AgeAtIncident: &age,
				Injuries:      []string{"Student"},
				StaffInvolved: []report.StaffMember{{Name: "Ms. Lee", Role: "teacher"}},
				Attachments:   []wizard.Attachment{{Name: "plan.pdf"}},
			},
			HoldsUsed: []string{"Basket hold"},
		},
	})
	require.NoError(t, err)
	age = 99

	// change everything the caller holds
	c := rec.Common()
	c.Injuries[0] = "Staff"
	c.StaffInvolved[0].Name = "Mr. Smith"
	c.Attachments[0].Name = "virus.exe"
	*c.AgeAtIncident = 0
	rec.BER.HoldsUsed[0] = "none"

	got, err := repo.GetReportByID(ctx, "rep-1")
	require.NoError(t, err)
	gc := got.Common()
	assert.Equal(t, []string{"Student"}, gc.Injuries)
	assert.Equal(t, "Ms. Lee", gc.StaffInvolved[0].Name)
	assert.Equal(t, "plan.pdf", gc.Attachments[0].Name)
	require.NotNil(t, gc.AgeAtIncident)
	assert.Equal(t, 14, *gc.AgeAtIncident)
	assert.Equal(t, []string{"Basket hold"}, got.BER.HoldsUsed)

	// queried records are detached too
	recs, err := repo.QueryReports(ctx, report.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	recs[0].Common().Injuries[0] = "Other"

	got, err = repo.GetReportByID(ctx, "rep-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Student"}, got.Common().Injuries)
}
