package handlers

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserHandler_SignUp(t *testing.T) {
	t.Run("creates account", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewUserHandler(svc)

		svc.On("SignUp", mock.Anything, model.SignUpRequest{
			Email:    "ann@example.com",
			Password: "secret",
			Name:     "Ann",
		}).Return(&model.User{ID: "u1", Email: "ann@example.com", Name: "Ann", Password: "hash"}, nil)

		ctx := setupTestContext("POST", "/api/v1/auth/sign-up", mustJSON(signUpRequest{
			Email:    "ann@example.com",
			Password: "secret",
			Name:     "Ann",
		}))
		h.SignUp(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		var got map[string]any
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
		assert.Equal(t, "u1", got["id"])
		assert.NotContains(t, got, "password")
		svc.AssertExpectations(t)
	})

	t.Run("email taken", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewUserHandler(svc)
		svc.On("SignUp", mock.Anything, mock.Anything).Return(nil, services.ErrEmailTaken)

		ctx := setupTestContext("POST", "/api/v1/auth/sign-up", mustJSON(signUpRequest{Email: "a@b.c", Password: "secret", Name: "A"}))
		h.SignUp(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
	})

	t.Run("invalid JSON", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewUserHandler(svc)

		ctx := setupTestContext("POST", "/api/v1/auth/sign-up", []byte("{"))
		h.SignUp(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "SignUp")
	})
}

func TestUserHandler_SignIn_BadCredentials(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserHandler(svc)
	svc.On("SignIn", mock.Anything, "ann@example.com", "nope").Return(nil, services.ErrInvalidCredentials)

	ctx := setupTestContext("POST", "/api/v1/auth/sign-in", mustJSON(signInRequest{Email: "ann@example.com", Password: "nope"}))
	h.SignIn(ctx)

	assert.Equal(t, 401, ctx.Response.StatusCode())
}

func TestUserHandler_EmailExists(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserHandler(svc)
	svc.On("IsEmailExist", mock.Anything, "ann@example.com").Return(true, nil)

	ctx := setupTestContext("GET", "/api/v1/auth/email-exists?email=ann@example.com", nil)
	h.EmailExists(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"exists":true}`, string(ctx.Response.Body()))

	ctx = setupTestContext("GET", "/api/v1/auth/email-exists", nil)
	h.EmailExists(ctx)
	assert.Equal(t, 400, ctx.Response.StatusCode())
}

func TestUserHandler_ForgotPassword(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserHandler(svc)
	svc.On("CreatePasswordReset", mock.Anything, "ann@example.com").
		Return(&model.PasswordReset{UserID: "u1", Token: "abc123"}, nil)
	svc.On("CreatePasswordReset", mock.Anything, "ghost@example.com").
		Return(nil, services.ErrUserNotFound)

	ctx := setupTestContext("POST", "/api/v1/auth/forgot-password", mustJSON(forgotPasswordRequest{Email: "ann@example.com"}))
	h.ForgotPassword(ctx)
	assert.Equal(t, 201, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"email":"ann@example.com","token":"abc123"}`, string(ctx.Response.Body()))

	ctx = setupTestContext("POST", "/api/v1/auth/forgot-password", mustJSON(forgotPasswordRequest{Email: "ghost@example.com"}))
	h.ForgotPassword(ctx)
	assert.Equal(t, 404, ctx.Response.StatusCode())
}

func TestUserHandler_ResetPassword(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserHandler(svc)
	svc.On("ResetPassword", mock.Anything, "tok", "newpass").Return(nil)
	svc.On("ResetPassword", mock.Anything, "stale", "newpass").Return(services.ErrResetTokenNotFound)

	ctx := withParam(setupTestContext("POST", "/api/v1/auth/reset-password/tok", mustJSON(resetPasswordRequest{Password: "newpass"})), "token", "tok")
	h.ResetPassword(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())

	ctx = withParam(setupTestContext("POST", "/api/v1/auth/reset-password/stale", mustJSON(resetPasswordRequest{Password: "newpass"})), "token", "stale")
	h.ResetPassword(ctx)
	assert.Equal(t, 404, ctx.Response.StatusCode())
}

func TestUserHandler_GetProfile(t *testing.T) {
	t.Run("requires user header", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewUserHandler(svc)

		ctx := setupTestContext("GET", "/api/v1/users/me", nil)
		h.GetProfile(ctx)

		assert.Equal(t, 401, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "GetPersonalProfile")
	})

	t.Run("returns profile", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewUserHandler(svc)
		svc.On("GetPersonalProfile", mock.Anything, "u1").Return(&model.Profile{ID: "u1", Name: "Ann"}, nil)

		ctx := asUser(setupTestContext("GET", "/api/v1/users/me", nil), "u1")
		h.GetProfile(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var p model.Profile
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &p))
		assert.Equal(t, "Ann", p.Name)
	})

	t.Run("internal error is hidden", func(t *testing.T) {
		svc := new(MockUserService)
		h := NewUserHandler(svc)
		svc.On("GetPersonalProfile", mock.Anything, "u1").Return(nil, errors.New("dial tcp: refused"))

		ctx := asUser(setupTestContext("GET", "/api/v1/users/me", nil), "u1")
		h.GetProfile(ctx)

		assert.Equal(t, 500, ctx.Response.StatusCode())
		assert.NotContains(t, decodeError(ctx), "dial tcp")
	})
}
