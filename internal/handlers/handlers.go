package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	gateway "github.com/nimasrn/community-gateway/internal/gateways"
	"github.com/nimasrn/community-gateway/internal/services"
	xhttp "github.com/nimasrn/community-gateway/pkg/http"
	"github.com/nimasrn/community-gateway/pkg/logger"
)

// UserIDHeader carries the caller id set by the authenticating proxy.
const UserIDHeader = "X-User-ID"

type messageResponse struct {
	Message string `json:"message"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	return json.Unmarshal(ctx.PostBody(), dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func param(ctx *xhttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

// currentUser writes a 401 and reports false when the request is anonymous.
func currentUser(ctx *xhttp.RequestCtx) (string, bool) {
	id := strings.TrimSpace(string(ctx.Request.Header.Peek(UserIDHeader)))
	if id == "" {
		writeError(ctx, xhttp.StatusUnauthorized, "missing "+UserIDHeader+" header")
		return "", false
	}
	return id, true
}

var notFoundErrors = []error{
	services.ErrUserNotFound,
	services.ErrGroupNotFound,
	services.ErrAssetNotFound,
	services.ErrRoomNotFound,
	services.ErrTransactionNotFound,
	services.ErrPayoutNotFound,
	services.ErrResetTokenNotFound,
}

var badRequestErrors = []error{
	services.ErrInvalidInput,
	services.ErrGroupIsPaid,
	services.ErrGroupIsFree,
	services.ErrInsufficientBalance,
	services.ErrInvalidPrice,
	services.ErrBenefitRequired,
}

var conflictErrors = []error{
	services.ErrEmailTaken,
	services.ErrAlreadyJoined,
	services.ErrInvalidTransition,
	services.ErrPayoutAlreadyPaid,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	var statusErr *gateway.StatusError
	switch {
	case isAny(err, notFoundErrors):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case isAny(err, badRequestErrors):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	case isAny(err, conflictErrors):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(ctx, xhttp.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrNotRoomMember), errors.Is(err, services.ErrNotGroupOwner):
		writeError(ctx, xhttp.StatusForbidden, err.Error())
	case errors.As(err, &statusErr), errors.Is(err, gateway.ErrInvalidResponse):
		logger.Warn("Payment gateway error", "path", string(ctx.Path()), "error", err)
		writeError(ctx, xhttp.StatusBadGateway, "payment gateway error")
	default:
		logger.Error("Request failed", "path", string(ctx.Path()), "error", err)
		writeError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
	}
}
