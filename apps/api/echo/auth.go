package echoapi

import (
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
	tokenAudience   = "BER Guardian"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	FullName     string `json:"full_name,omitempty"`
	Role         string `json:"role,omitempty"`
	IsAdmin      bool   `json:"is_admin,omitempty"`
}

func GetUserClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        usr.Email,
		FullName:     usr.FullName,
		Role:         usr.Role,
		IsAdmin:      usr.IsAdmin(),
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// revocationList holds the ids of logged out tokens until they expire.
type revocationList struct {
	mu  sync.Mutex
	ids map[string]time.Time // jti -> expiry
}

func (rl *revocationList) revoke(jti string, exp time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	for id, until := range rl.ids {
		if now.After(until) {
			delete(rl.ids, id)
		}
	}
	rl.ids[jti] = exp
}

func (rl *revocationList) isRevoked(jti string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	_, ok := rl.ids[jti]
	return ok
}

type authenticator struct {
	conf      *core.Config
	svc       *user.Service
	jwtConfig middleware.JWTConfig
	revoked   *revocationList
}

func newAuthenticator(conf *core.Config, svc *user.Service) *authenticator {
	return &authenticator{
		conf: conf,
		svc:  svc,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
		revoked: &revocationList{ids: make(map[string]time.Time)},
	}
}

// middleware authenticates the bearer token and rejects the logged out ones.
func (a *authenticator) middleware() echo.MiddlewareFunc {
	jwtMiddleware := middleware.JWTWithConfig(a.jwtConfig)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMiddleware(func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if a.revoked.isRevoked(claims.Id) {
				return errTokenRevoked
			}
			return next(ctx)
		})
	}
}

func (a *authenticator) login(ctx echo.Context, creds user.LoginCredentials) (string, error) {
	usr, err := a.svc.Authenticate(ctx.Request().Context(), creds)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrInvalidCredentials:
			return "", errAuthenticationFailed
		case user.ErrInactive:
			return "", errAccountDeactivated
		}
		return "", errors.Wrap(err, "authenticating")
	}
	ctx.Set(contextUserKey, usr)
	return GenerateToken(a.conf, GetUserClaims(a.conf, usr))
}

func (a *authenticator) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	a.revoked.revoke(claims.Id, time.Unix(claims.ExpiresAt, 0))
	return nil
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := getContextUser(ctx, a.svc)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(a.conf, GetUserClaims(a.conf, usr, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser loads the authenticated user once per request.
func getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context claims")
	}

	usr, err := svc.Get(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// contextActor is the email recorded in the audit trail for the request's user.
func contextActor(ctx echo.Context) string {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return ""
	}
	return claims.Email
}
