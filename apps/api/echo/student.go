package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core/student"
)

type studentApi struct {
	svc *student.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *student.Service) {
	api := studentApi{svc: svc}

	sg := g.Group("/students", jwt)
	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update, adminMiddleware())
	sg.DELETE("/:id", api.destroy, adminMiddleware())
	sg.POST("/:id/archive", api.archive, adminMiddleware())
	sg.POST("/:id/reactivate", api.reactivate, adminMiddleware())
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	var filter student.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	s, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	s, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) archive(ctx echo.Context) error {
	var data ArchiveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ArchiveRequest")
	}
	s, err := api.svc.Archive(ctx.Request().Context(), ctx.Param("id"), data.Reason)
	if err != nil {
		return errors.Wrap(err, "archiving student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) reactivate(ctx echo.Context) error {
	s, err := api.svc.Reactivate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "reactivating student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type ArchiveRequest struct {
	Reason string `json:"reason"`
}
