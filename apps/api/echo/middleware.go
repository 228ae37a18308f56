package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/netaboodkw/teacherhubsite-sub002/core/gradesheet"
)

var objectKey = "object"

// sheetMiddleware loads the sheet named by the `:id` path param into the context.
func sheetMiddleware(svc gradesheet.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sht, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == gradesheet.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding sheet by ID")
			}
			ctx.Set(objectKey, sht)
			return next(ctx)
		}
	}
}

func getContextSheet(ctx echo.Context) (gradesheet.Sheet, error) {
	sht, ok := ctx.Get(objectKey).(gradesheet.Sheet)
	if !ok {
		return gradesheet.Sheet{}, errSheetNotFoundInCtx
	}
	return sht, nil
}
