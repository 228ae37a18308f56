package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/netaboodkw/teacherhubsite-sub002/core"
	"github.com/netaboodkw/teacherhubsite-sub002/core/gradesheet"
)

var errSheetNotFoundInCtx = errors.New("sheet object not found in echo.Context")

type sheetApi struct {
	svc      gradesheet.Service
	validate *validator.Validate
}

func registerSheetAPI(
	g *echo.Group,
	svc gradesheet.Service,
	validate *validator.Validate,
) {
	api := sheetApi{
		svc:      svc,
		validate: validate,
	}

	sg := g.Group("/gradesheets")
	sg.POST("", api.create)
	sg.GET("", api.query)
	sg.DELETE("", api.destroyMultiple)

	// detail endpoints
	dg := sg.Group("/:id", sheetMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/load", api.load)
	dg.GET("/totals", api.totals)
	dg.POST("/groups", api.addGroup)
	dg.POST("/groups/:groupID/columns", api.addColumn)
}

// Handlers

func (api *sheetApi) create(ctx echo.Context) error {
	var data gradesheet.NewSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSheet")
	}

	sht, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating sheet")
	}
	return ctx.JSON(http.StatusCreated, sht)
}

func (api *sheetApi) query(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	sheets, err := api.svc.Query(ctx.Request().Context(), ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying sheets")
	}
	if sheets == nil {
		sheets = []gradesheet.Sheet{}
	}
	return ctx.JSON(http.StatusOK, sheets)
}

func (api *sheetApi) retrieve(ctx echo.Context) error {
	sht, err := getContextSheet(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, sht)
}

func (api *sheetApi) update(ctx echo.Context) error {
	sht, err := getContextSheet(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	var data gradesheet.Structure
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Structure")
	}
	if data.Groups == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "groups", Error: "this field is required"})
	}

	sht, err = api.svc.Save(ctx.Request().Context(), sht.ID, data)
	if err != nil {
		return errors.Wrap(err, "saving sheet")
	}
	return ctx.JSON(http.StatusOK, sht)
}

func (api *sheetApi) load(ctx echo.Context) error {
	sht, err := getContextSheet(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	s, idMap, err := api.svc.Load(ctx.Request().Context(), sht.ID)
	if err != nil {
		return errors.Wrap(err, "loading sheet")
	}
	return ctx.JSON(http.StatusOK, LoadResponse{Structure: s, IDMap: idMap})
}

func (api *sheetApi) totals(ctx echo.Context) error {
	sht, err := getContextSheet(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, gradesheet.ComputeTotals(*sht.Structure))
}

func (api *sheetApi) addGroup(ctx echo.Context) error {
	sht, err := getContextSheet(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	var data AddGroupRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AddGroupRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sht, err = api.svc.AddGroup(ctx.Request().Context(), sht.ID, data.Name)
	if err != nil {
		return errors.Wrap(err, "adding group")
	}
	return ctx.JSON(http.StatusCreated, sht)
}

func (api *sheetApi) addColumn(ctx echo.Context) error {
	sht, err := getContextSheet(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	var data gradesheet.NewColumn
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewColumn")
	}

	sht, err = api.svc.AddColumn(ctx.Request().Context(), sht.ID, ctx.Param("groupID"), data)
	if err != nil {
		return errors.Wrap(err, "adding column")
	}
	return ctx.JSON(http.StatusCreated, sht)
}

func (api *sheetApi) destroy(ctx echo.Context) error {
	sht, err := getContextSheet(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), sht.ID); err != nil {
		return errors.Wrap(err, "deleting sheet")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sheetApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting sheets")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type (
	LoadResponse struct {
		Structure gradesheet.Structure `json:"structure"`
		IDMap     gradesheet.IDMap     `json:"id_map"`
	}

	AddGroupRequest struct {
		Name string `json:"name" validate:"max=100"`
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func (ar *AddGroupRequest) Validate(validate *validator.Validate) error {
	ar.Name = core.CleanString(ar.Name)
	return validate.Struct(ar)
}
