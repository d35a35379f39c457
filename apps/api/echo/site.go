package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core/site"
)

type siteApi struct {
	svc *site.Service
}

func registerSiteAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *site.Service) {
	api := siteApi{svc: svc}

	sg := g.Group("/sites", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, adminMiddleware())
	sg.DELETE("/:id", api.destroy, adminMiddleware())
	sg.POST("/:id/toggle-active", api.toggleActive, adminMiddleware())
}

// Handlers

func (api *siteApi) query(ctx echo.Context) error {
	var filter site.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []site.Site{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	sites, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying sites")
	}
	if sites == nil {
		sites = []site.Site{}
	}
	return ctx.JSON(http.StatusOK, sites)
}

func (api *siteApi) create(ctx echo.Context) error {
	var data site.NewSite
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSite")
	}
	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating site")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *siteApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding site by ID")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *siteApi) update(ctx echo.Context) error {
	var data site.UpdateSite
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSite")
	}
	s, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating site")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *siteApi) toggleActive(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding site by ID")
	}
	if s, err = api.svc.SetActive(ctx.Request().Context(), s.ID, !s.Active); err != nil {
		return errors.Wrap(err, "toggling site")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *siteApi) destroy(ctx echo.Context) error {
	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding site by ID")
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting site")
	}
	return ctx.NoContent(http.StatusNoContent)
}
