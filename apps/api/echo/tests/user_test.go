package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/berguardian/apps/api/echo"
	"github.com/trezcool/berguardian/core/user"
	"github.com/trezcool/berguardian/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "Gone", "gone@school.test", testPwd, user.RoleStaff, false)

	tests := []httpTest{
		{
			name:     "empty credentials",
			body:     marchallObj(t, user.LoginCredentials{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"email":    "email is a required field",
				"password": "password is a required field",
			}),
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, user.LoginCredentials{Email: app.admin.Email, Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "unknown email",
			body:     marchallObj(t, user.LoginCredentials{Email: "who@school.test", Password: testPwd}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "inactive user",
			body:     marchallObj(t, user.LoginCredentials{Email: "gone@school.test", Password: testPwd}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("valid credentials", func(t *testing.T) {
		var resp LoginResponse
		rec := app.do(t, http.MethodPost, "/v1/users/login", "",
			user.LoginCredentials{Email: " ADMIN@school.test ", Password: testPwd}, &resp)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		claims := new(Claims)
		_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(app.conf.SecretKey), nil
		})
		require.NoError(t, err)
		assert.Equal(t, app.admin.ID, claims.Subject)
		assert.Equal(t, app.admin.Email, claims.Email)
		assert.True(t, claims.IsAdmin)
		assert.NotEmpty(t, claims.Id)

		usr := getUser(t, app, app.admin.ID)
		assert.NotNil(t, usr.LastLogin)
	})
}

func Test_userApi_logout(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, app.staffer)

	rec := app.do(t, http.MethodGet, "/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/v1/users/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	var herr httpErr
	rec = app.do(t, http.MethodGet, "/v1/users/me", token, nil, &herr)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token has been revoked", herr.Error)

	// other tokens of the user stay valid
	rec = app.do(t, http.MethodGet, "/v1/users/me", getToken(t, app.conf, app.staffer), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{
			name:     "missing token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "invalid token",
			token:    "not.a.token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name:     "staff",
			token:    getToken(t, app.conf, app.staffer),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, app.staffer),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", tt.token)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("deleted user", func(t *testing.T) {
		ghost := testutil.CreateUser(t, app.usrRepo, "Ghost", "ghost@school.test", "", user.RoleStaff, true)
		token := getToken(t, app.conf, ghost)
		rec := app.do(t, http.MethodDelete, "/v1/users/"+ghost.ID, getToken(t, app.conf, app.admin), nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", token)
		app.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		}, rec)
	})
}

func Test_userApi_tokenRefresh(t *testing.T) {
	app := setup(t)

	t.Run("keeps the original issue time", func(t *testing.T) {
		origIat := time.Now().Add(-time.Hour).Unix()
		token, err := GenerateToken(app.conf, GetUserClaims(app.conf, app.staffer, origIat))
		require.NoError(t, err)

		var resp LoginResponse
		rec := app.do(t, http.MethodPost, "/v1/users/token-refresh", token, nil, &resp)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		claims := new(Claims)
		_, err = jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(app.conf.SecretKey), nil
		})
		require.NoError(t, err)
		assert.Equal(t, origIat, claims.OrigIssuedAt)
	})

	t.Run("refresh expired", func(t *testing.T) {
		origIat := time.Now().Add(-app.conf.Server.JWTRefreshExpirationDelta - time.Minute).Unix()
		token, err := GenerateToken(app.conf, GetUserClaims(app.conf, app.staffer, origIat))
		require.NoError(t, err)

		rec := app.do(t, http.MethodPost, "/v1/users/token-refresh", token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func Test_userApi_register(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, app.conf, app.admin)
	nu := user.NewUser{
		FullName:        "Grace Hopper",
		Email:           "grace@school.test",
		Password:        testPwd,
		PasswordConfirm: testPwd,
	}

	tests := []httpTest{
		{
			name:     "staff cannot register users",
			token:    getToken(t, app.conf, app.staffer),
			body:     marchallObj(t, nu),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:  "passwords mismatch",
			token: adminToken,
			body: marchallObj(t, user.NewUser{
				FullName: nu.FullName, Email: nu.Email, Password: testPwd, PasswordConfirm: "other",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "duplicate email",
			token:    adminToken,
			body:     marchallObj(t, user.NewUser{FullName: "X", Email: app.staffer.Email, Password: testPwd, PasswordConfirm: testPwd}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", tt.token, tt.body)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("admin registers staff", func(t *testing.T) {
		var usr user.User
		rec := app.do(t, http.MethodPost, "/v1/users/register", adminToken, nu, &usr)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, nu.Email, usr.Email)
		assert.Equal(t, user.RoleStaff, usr.Role)
		assert.True(t, usr.IsActive)
	})
}

func Test_userApi_update(t *testing.T) {
	app := setup(t)
	staffToken := getToken(t, app.conf, app.staffer)
	other := testutil.CreateUser(t, app.usrRepo, "Other", "other@school.test", "", user.RoleStaff, true)

	tests := []httpTest{
		{
			name:     "staff updates own name",
			path:     "/v1/users/" + app.staffer.ID,
			body:     []byte(`{"full_name": "Teacher Renamed"}`),
			token:    staffToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "staff cannot change own role",
			path:     "/v1/users/" + app.staffer.ID,
			body:     []byte(`{"role": "admin:"}`),
			token:    staffToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "staff cannot see others",
			path:     "/v1/users/" + other.ID,
			body:     []byte(`{"full_name": "Hacked"}`),
			token:    staffToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "unknown user",
			path:     "/v1/users/nobody",
			body:     []byte(`{"full_name": "Nobody"}`),
			token:    getToken(t, app.conf, app.admin),
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, tt.path, tt.token, tt.body)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}

	assert.Equal(t, "Teacher Renamed", getUser(t, app, app.staffer.ID).FullName)
	assert.Equal(t, "Other", getUser(t, app, other.ID).FullName)
}

func Test_userApi_destroy(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, app.conf, app.admin)

	rec := app.do(t, http.MethodDelete, "/v1/users/"+app.admin.ID, adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodDelete, "/v1/users/"+app.staffer.ID, getToken(t, app.conf, app.staffer), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodDelete, "/v1/users/"+app.staffer.ID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var users []user.User
	rec = app.do(t, http.MethodGet, "/v1/users", adminToken, nil, &users)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, users, 1)
	assert.Equal(t, app.admin.ID, users[0].ID)
}
