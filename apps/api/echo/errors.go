package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/report"
	"github.com/trezcool/berguardian/core/site"
	"github.com/trezcool/berguardian/core/staff"
	"github.com/trezcool/berguardian/core/student"
	"github.com/trezcool/berguardian/core/task"
	"github.com/trezcool/berguardian/core/user"
	"github.com/trezcool/berguardian/core/wizard"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errTokenRevoked         = echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")

	// sentinelCodes maps the domain errors answered with their own message.
	sentinelCodes = map[error]int{
		user.ErrNotFound:           http.StatusNotFound,
		user.ErrInactive:           http.StatusForbidden,
		user.ErrInvalidCredentials: http.StatusBadRequest,
		report.ErrNotFound:         http.StatusNotFound,
		report.ErrSubmitInProgress: http.StatusConflict,
		student.ErrNotFound:        http.StatusNotFound,
		student.ErrAlreadyArchived: http.StatusConflict,
		student.ErrNotArchived:     http.StatusConflict,
		staff.ErrNotFound:          http.StatusNotFound,
		site.ErrNotFound:           http.StatusNotFound,
		task.ErrNotFound:           http.StatusNotFound,
		task.ErrAlreadyClosed:      http.StatusConflict,
		wizard.ErrUnknownField:     http.StatusNotFound,
		wizard.ErrNotRepeater:      http.StatusBadRequest,
		wizard.ErrNotFileUpload:    http.StatusBadRequest,
		wizard.ErrRepeaterFull:     http.StatusBadRequest,
		wizard.ErrRepeaterMin:      http.StatusBadRequest,
		wizard.ErrIndexOutOfRange:  http.StatusBadRequest,
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.RemoteError:
			// the client keeps its state and may retry
			code = http.StatusBadGateway
			message = origErr.Error()
			logger.Warn("remote failure", err, contextLogUser(ctx))
		default:
			if sc, ok := sentinelCode(origErr); ok {
				code = sc
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), contextLogUser(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func sentinelCode(err error) (int, bool) {
	for sentinel, code := range sentinelCodes {
		if err == sentinel {
			return code, true
		}
	}
	return 0, false
}

// contextLogUser identifies the request's user to the logger, from the token alone.
func contextLogUser(ctx echo.Context) user.User {
	var usr user.User
	if claims, err := getContextClaims(ctx); err == nil {
		usr.ID = claims.Subject
		usr.FullName = claims.FullName
		usr.Email = claims.Email
	}
	return usr
}
