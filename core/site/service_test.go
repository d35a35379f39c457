package site_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/site"
	"github.com/trezcool/berguardian/storage/database/inmem"
)

func TestService(t *testing.T) {
	svc := site.NewService(inmemdb.NewSiteRepository(inmemdb.Open()))
	ctx := context.Background()

	lincoln, err := svc.Create(ctx, site.NewSite{Name: " Lincoln Elementary ", Code: "lin_01"})
	require.NoError(t, err)
	assert.Equal(t, "Lincoln Elementary", lincoln.Name)
	assert.Equal(t, "LIN_01", lincoln.Code)
	assert.True(t, lincoln.Active)

	_, err = svc.Create(ctx, site.NewSite{Name: "lincoln elementary"})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr, "site names are unique regardless of case")
	assert.Equal(t, "name", verr.Fields[0].Field)

	_, err = svc.Create(ctx, site.NewSite{Name: "Oak", Code: "oak-1"})
	assert.Error(t, err)

	oak, err := svc.Create(ctx, site.NewSite{Name: "Oak Middle"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, oak.ID, site.UpdateSite{Name: "Lincoln Elementary"})
	assert.ErrorAs(t, err, &verr)

	oak, err = svc.Update(ctx, oak.ID, site.UpdateSite{Principal: "Ms. Frizzle"})
	require.NoError(t, err)
	assert.Equal(t, "Oak Middle", oak.Name)
	assert.Equal(t, "Ms. Frizzle", oak.Principal)

	_, err = svc.SetActive(ctx, oak.ID, false)
	require.NoError(t, err)

	active := true
	sites, err := svc.Query(ctx, site.QueryFilter{Active: &active})
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, lincoln.ID, sites[0].ID)

	require.NoError(t, svc.Delete(ctx, lincoln.ID))
	_, err = svc.Get(ctx, lincoln.ID)
	assert.Equal(t, site.ErrNotFound, err)
}
