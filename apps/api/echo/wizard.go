package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core/wizard"
)

type wizardApi struct {
	engine *wizard.Engine
}

func registerWizardAPI(g *echo.Group, jwt echo.MiddlewareFunc, engine *wizard.Engine) {
	api := wizardApi{engine: engine}

	wg := g.Group("/wizard", jwt)
	wg.GET("/config", api.config)
	wg.POST("/initialize", api.initialize)
	wg.POST("/change", api.change)
	wg.POST("/validate", api.validate)
	wg.POST("/steps/:index/next", api.next)
	wg.POST("/steps/:index/back", api.back)
	wg.POST("/repeaters/:key/items", api.addItem)
	wg.DELETE("/repeaters/:key/items/:index", api.removeItem)
}

// state decodes the posted state into the engine's value shapes, defaults included.
func (api *wizardApi) state(raw map[string]interface{}) wizard.FormState {
	return api.engine.Initialize(wizard.Normalize(api.engine.Config(), raw))
}

// Handlers

func (api *wizardApi) config(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.engine.Config())
}

func (api *wizardApi) initialize(ctx echo.Context) error {
	var data StateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StateRequest")
	}
	return ctx.JSON(http.StatusOK, StateResponse{State: api.state(data.State)})
}

func (api *wizardApi) change(ctx echo.Context) error {
	var data ChangeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeRequest")
	}
	if _, ok := api.engine.Config().Field(data.Key); !ok {
		return errors.Wrapf(wizard.ErrUnknownField, "changing %q", data.Key)
	}
	state := api.engine.OnChangeContext(ctx.Request().Context(), api.state(data.State), data.Key, data.Value)
	return ctx.JSON(http.StatusOK, StateResponse{State: state})
}

func (api *wizardApi) validate(ctx echo.Context) error {
	var data StateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StateRequest")
	}
	violations := api.engine.ValidateAll(api.state(data.State))
	return ctx.JSON(http.StatusOK, ValidationResponse{Valid: len(violations) == 0, Violations: nonNil(violations)})
}

func (api *wizardApi) step(ctx echo.Context) (int, error) {
	index, err := intParam(ctx, "index")
	if err != nil {
		return 0, err
	}
	if _, ok := api.engine.Config().Step(index); !ok {
		return 0, errHttpNotFound
	}
	return index, nil
}

// next only moves on when the current step validates; the violations say why it did not.
func (api *wizardApi) next(ctx echo.Context) error {
	current, err := api.step(ctx)
	if err != nil {
		return err
	}
	var data StateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StateRequest")
	}
	step, violations := api.engine.Next(current, api.state(data.State))
	return ctx.JSON(http.StatusOK, StepResponse{Step: step, Violations: nonNil(violations)})
}

func (api *wizardApi) back(ctx echo.Context) error {
	current, err := api.step(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StepResponse{Step: api.engine.Back(current), Violations: wizard.Violations{}})
}

func (api *wizardApi) addItem(ctx echo.Context) error {
	var data StateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StateRequest")
	}
	state, err := api.engine.AddItem(api.state(data.State), ctx.Param("key"))
	if err != nil {
		return errors.Wrapf(err, "adding %s item", ctx.Param("key"))
	}
	return ctx.JSON(http.StatusOK, StateResponse{State: state})
}

func (api *wizardApi) removeItem(ctx echo.Context) error {
	index, err := intParam(ctx, "index")
	if err != nil {
		return err
	}
	var data StateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StateRequest")
	}
	state, err := api.engine.RemoveItem(api.state(data.State), ctx.Param("key"), index)
	if err != nil {
		return errors.Wrapf(err, "removing %s item %d", ctx.Param("key"), index)
	}
	return ctx.JSON(http.StatusOK, StateResponse{State: state})
}

func nonNil(v wizard.Violations) wizard.Violations {
	if v == nil {
		return wizard.Violations{}
	}
	return v
}

type (
	StateRequest struct {
		State map[string]interface{} `json:"state"`
	}

	ChangeRequest struct {
		State map[string]interface{} `json:"state"`
		Key   string                 `json:"key"`
		Value interface{}            `json:"value"`
	}

	StateResponse struct {
		State wizard.FormState `json:"state"`
	}

	StepResponse struct {
		Step       int               `json:"step"`
		Violations wizard.Violations `json:"violations"`
	}

	ValidationResponse struct {
		Valid      bool              `json:"valid"`
		Violations wizard.Violations `json:"violations"`
	}
)
