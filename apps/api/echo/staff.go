package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core/staff"
)

type staffApi struct {
	svc *staff.Service
}

func registerStaffAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *staff.Service) {
	api := staffApi{svc: svc}

	sg := g.Group("/staff", jwt)
	sg.GET("", api.query)
	sg.GET("/roles", api.queryRoles)
	sg.POST("", api.create, adminMiddleware())
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, adminMiddleware())
	sg.DELETE("/:id", api.destroy, adminMiddleware())
	sg.POST("/:id/toggle-active", api.toggleActive, adminMiddleware())
}

// Handlers

func (api *staffApi) query(ctx echo.Context) error {
	var filter staff.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []staff.Member{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	members, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying staff")
	}
	if members == nil {
		members = []staff.Member{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *staffApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, staff.Roles)
}

func (api *staffApi) create(ctx echo.Context) error {
	var data staff.NewMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}
	m, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating staff member")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *staffApi) retrieve(ctx echo.Context) error {
	m, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding staff member by ID")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *staffApi) update(ctx echo.Context) error {
	var data staff.UpdateMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMember")
	}
	m, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating staff member")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *staffApi) toggleActive(ctx echo.Context) error {
	m, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding staff member by ID")
	}
	if m, err = api.svc.SetActive(ctx.Request().Context(), m.ID, !m.Active); err != nil {
		return errors.Wrap(err, "toggling staff member")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *staffApi) destroy(ctx echo.Context) error {
	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding staff member by ID")
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting staff member")
	}
	return ctx.NoContent(http.StatusNoContent)
}
