package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core"
)

// adminMiddleware only lets admins through; with roles, only admins holding one of them.
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && (len(roles) == 0 || core.StringInSlice(claims.Role, roles)) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
