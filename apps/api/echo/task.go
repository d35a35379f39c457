package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core/task"
)

type taskApi struct {
	svc *task.Service
}

func registerTaskAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *task.Service) {
	api := taskApi{svc: svc}

	tg := g.Group("/tasks", jwt)
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.GET("/stats", api.stats)
	tg.POST("/sweep", api.sweep, adminMiddleware())
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update)
	tg.DELETE("/:id", api.destroy, adminMiddleware())
	tg.POST("/:id/complete", api.complete)
	tg.POST("/:id/archive", api.archive)
}

// Handlers

func (api *taskApi) query(ctx echo.Context) error {
	var filter task.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []task.Task{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	tasks, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *taskApi) create(ctx echo.Context) error {
	var data task.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *taskApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "computing task stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *taskApi) sweep(ctx echo.Context) error {
	n, err := api.svc.MarkOverdue(ctx.Request().Context(), time.Now())
	if err != nil {
		return errors.Wrap(err, "marking overdue tasks")
	}
	return ctx.JSON(http.StatusOK, SweepResponse{Marked: n})
}

func (api *taskApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding task by ID")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) update(ctx echo.Context) error {
	var data task.UpdateTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTask")
	}
	t, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) complete(ctx echo.Context) error {
	t, err := api.svc.Complete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "completing task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) archive(ctx echo.Context) error {
	t, err := api.svc.Archive(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "archiving task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) destroy(ctx echo.Context) error {
	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding task by ID")
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type SweepResponse struct {
	Marked int `json:"marked"`
}
