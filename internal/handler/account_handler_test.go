package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"shopease/internal/middleware"
	"shopease/internal/model"
	"shopease/internal/service/account"
	internalutils "shopease/internal/utils"
	"shopease/pkg/utils"
)

// MockAccountService is a mock implementation of account.AccountService
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) user(args mock.Arguments) (*model.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAccountService) Warm(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockAccountService) Register(ctx context.Context, req *account.RegisterRequest) (*model.User, error) {
	return m.user(m.Called(ctx, req))
}

func (m *MockAccountService) Login(ctx context.Context, req *account.LoginRequest) (*account.LoginResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.LoginResult), args.Error(1)
}

func (m *MockAccountService) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockAccountService) ValidateToken(ctx context.Context, token string) (*internalutils.JWTClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*internalutils.JWTClaims), args.Error(1)
}

func (m *MockAccountService) GetUser(ctx context.Context, id uint64) (*model.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *MockAccountService) ListUsers(ctx context.Context, page, perPage int) ([]*model.User, int64, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]*model.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockAccountService) UpdateProfile(ctx context.Context, id uint64, req *account.UpdateProfileRequest) (*model.User, error) {
	return m.user(m.Called(ctx, id, req))
}

func (m *MockAccountService) ChangePassword(ctx context.Context, id uint64, req *account.ChangePasswordRequest) error {
	return m.Called(ctx, id, req).Error(0)
}

func accountRouter(svc *MockAccountService) *gin.Engine {
	h := NewAccountHandler(svc)
	router := gin.New()
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)
	router.GET("/users/:id", h.GetUser)
	router.GET("/users", h.ListUsers)

	authed := router.Group("/", func(c *gin.Context) {
		if c.GetHeader("Authorization") == "Bearer good" {
			c.Set(middleware.UserIDKey, uint64(7))
			c.Set(middleware.TokenKey, "good")
		}
		c.Next()
	})
	authed.POST("/logout", h.Logout)
	authed.GET("/profile", h.GetProfile)
	authed.PUT("/profile", h.UpdateProfile)
	authed.PUT("/profile/password", h.ChangePassword)
	return router
}

func TestAccountHandler_Register(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockAccountService)
		svc.On("Register", mock.Anything, mock.MatchedBy(func(req *account.RegisterRequest) bool {
			return req.Username == "ada" && req.Email == "ada@example.com"
		})).Return(&model.User{ID: 7, Username: "ada", Email: "ada@example.com", PasswordHash: "secret-hash"}, nil)

		w := performRequest(accountRouter(svc), http.MethodPost, "/register",
			`{"username":"ada","email":"ada@example.com","password":"hunter22"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "User registered successfully", decode(t, w)["message"])
		assert.NotContains(t, w.Body.String(), "secret-hash")
	})

	t.Run("duplicate", func(t *testing.T) {
		svc := new(MockAccountService)
		svc.On("Register", mock.Anything, mock.Anything).Return(nil, utils.ErrUsernameTaken)

		w := performRequest(accountRouter(svc), http.MethodPost, "/register",
			`{"username":"ada","email":"ada@example.com","password":"hunter22"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "username already exists", decode(t, w)["error"])
	})

	t.Run("short password", func(t *testing.T) {
		w := performRequest(accountRouter(new(MockAccountService)), http.MethodPost, "/register",
			`{"username":"ada","email":"ada@example.com","password":"x"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "password must be at least 6", decode(t, w)["error"])
	})
}

func TestAccountHandler_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockAccountService)
		svc.On("Login", mock.Anything, &account.LoginRequest{Username: "ada", Password: "hunter22"}).
			Return(&account.LoginResult{Token: "jwt", ExpiresIn: 86400, User: &model.User{ID: 7, Username: "ada"}}, nil)

		w := performRequest(accountRouter(svc), http.MethodPost, "/login", `{"username":"ada","password":"hunter22"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Login successful", body["message"])
		assert.Equal(t, "jwt", body["token"])
		assert.Equal(t, "ada", body["user"].(map[string]interface{})["username"])
	})

	t.Run("bad credentials", func(t *testing.T) {
		svc := new(MockAccountService)
		svc.On("Login", mock.Anything, mock.Anything).Return(nil, utils.ErrBadCredentials)

		w := performRequest(accountRouter(svc), http.MethodPost, "/login", `{"username":"ada","password":"nope"}`)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAccountHandler_Profile(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		w := performRequest(accountRouter(new(MockAccountService)), http.MethodGet, "/profile", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		svc := new(MockAccountService)
		svc.On("GetUser", mock.Anything, uint64(7)).Return(&model.User{ID: 7, Username: "ada"}, nil)

		router := accountRouter(svc)
		req := newAuthedRequest(http.MethodGet, "/profile", "")
		w := serve(router, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ada", decode(t, w)["username"])
	})

	t.Run("change password", func(t *testing.T) {
		svc := new(MockAccountService)
		svc.On("ChangePassword", mock.Anything, uint64(7), mock.Anything).
			Return(utils.NewError(utils.KindValidation, "old password is incorrect"))

		w := serve(accountRouter(svc), newAuthedRequest(http.MethodPut, "/profile/password",
			`{"old_password":"wrong","new_password":"hunter33"}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "old password is incorrect", decode(t, w)["error"])
	})

	t.Run("logout", func(t *testing.T) {
		svc := new(MockAccountService)
		svc.On("Logout", mock.Anything, "good").Return(nil)

		w := serve(accountRouter(svc), newAuthedRequest(http.MethodPost, "/logout", ""))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})
}

func TestAccountHandler_GetUser(t *testing.T) {
	svc := new(MockAccountService)
	svc.On("GetUser", mock.Anything, uint64(99)).Return(nil, utils.ErrUserNotFound)

	w := performRequest(accountRouter(svc), http.MethodGet, "/users/99", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}
