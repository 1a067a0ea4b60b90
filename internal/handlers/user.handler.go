package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/community-gateway/internal/model"
	xhttp "github.com/nimasrn/community-gateway/pkg/http"
)

type UserService interface {
	IsEmailExist(ctx context.Context, email string) (bool, error)
	SignUp(ctx context.Context, req model.SignUpRequest) (*model.User, error)
	SignIn(ctx context.Context, email, password string) (*model.User, error)
	CreatePasswordReset(ctx context.Context, email string) (*model.PasswordReset, error)
	ResetPassword(ctx context.Context, token, password string) error
	GetPersonalProfile(ctx context.Context, id string) (*model.Profile, error)
}

type UserHandler struct {
	svc UserService
}

func RegisterUserRoutes(e *router.Group, h *UserHandler) {
	e.POST("/auth/sign-up", h.SignUp)
	e.POST("/auth/sign-in", h.SignIn)
	e.GET("/auth/email-exists", h.EmailExists)
	e.POST("/auth/forgot-password", h.ForgotPassword)
	e.POST("/auth/reset-password/{token}", h.ResetPassword)
	e.GET("/users/me", h.GetProfile)
}

func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{
		svc: userService,
	}
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Photo    string `json:"photo"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// forgotPasswordResponse hands the token back because mail delivery happens
// outside this service.
type forgotPasswordResponse struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *UserHandler) SignUp(ctx *xhttp.RequestCtx) {
	var req signUpRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	u, err := h.svc.SignUp(ctx, model.SignUpRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Photo:    req.Photo,
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, u)
}

func (h *UserHandler) SignIn(ctx *xhttp.RequestCtx) {
	var req signInRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	u, err := h.svc.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, u)
}

func (h *UserHandler) EmailExists(ctx *xhttp.RequestCtx) {
	email := query(ctx, "email")
	if email == "" {
		writeError(ctx, xhttp.StatusBadRequest, "email is required")
		return
	}
	exists, err := h.svc.IsEmailExist(ctx, email)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]bool{"exists": exists})
}

func (h *UserHandler) ForgotPassword(ctx *xhttp.RequestCtx) {
	var req forgotPasswordRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	pr, err := h.svc.CreatePasswordReset(ctx, req.Email)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, forgotPasswordResponse{Email: req.Email, Token: pr.Token})
}

func (h *UserHandler) ResetPassword(ctx *xhttp.RequestCtx) {
	var req resetPasswordRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.svc.ResetPassword(ctx, param(ctx, "token"), req.Password); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, messageResponse{Message: "password updated"})
}

func (h *UserHandler) GetProfile(ctx *xhttp.RequestCtx) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	p, err := h.svc.GetPersonalProfile(ctx, userID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, p)
}
