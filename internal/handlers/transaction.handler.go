package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/fasthttp/router"
	gateway "github.com/nimasrn/community-gateway/internal/gateways"
	"github.com/nimasrn/community-gateway/internal/model"
	xhttp "github.com/nimasrn/community-gateway/pkg/http"
	"github.com/nimasrn/community-gateway/pkg/logger"
)

type TransactionService interface {
	CreateTransaction(ctx context.Context, groupID, userID string) (json.RawMessage, error)
	FindTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, orderID, status string) (*model.ReconcileResult, error)
	GetBalance(ctx context.Context, userID string) (int64, error)
	GetRevenueStat(ctx context.Context, userID string) (*model.RevenueStat, error)
	CreateWithdraw(ctx context.Context, req model.WithdrawRequest, userID string) (*model.Payout, error)
	UpdateWithdraw(ctx context.Context, id, proof string) (*model.Payout, error)
	GetHistoryPayouts(ctx context.Context, userID string) ([]*model.Payout, error)
	GetAllHistoryPayouts(ctx context.Context) ([]*model.Payout, error)
}

// CallbackPublisher queues payment notifications for the processor.
type CallbackPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

type TransactionHandler struct {
	svc       TransactionService
	callbacks CallbackPublisher
}

func RegisterTransactionRoutes(e *router.Group, h *TransactionHandler) {
	e.POST("/transactions/checkout/{groupId}", h.Checkout)
	e.POST("/transactions/callback", h.Callback)
	e.GET("/transactions/detail/{id}", h.GetTransaction)
	e.GET("/balance", h.GetBalance)
	e.GET("/revenue", h.GetRevenue)
	e.POST("/payouts", h.CreateWithdraw)
	e.GET("/payouts", h.GetPayoutHistory)
	e.GET("/payouts/all", h.GetAllPayouts)
	e.PUT("/payouts/{id}", h.UpdateWithdraw)
}

func NewTransactionHandler(transactionService TransactionService) *TransactionHandler {
	return &TransactionHandler{
		svc: transactionService,
	}
}

// WithCallbackQueue makes the webhook enqueue notifications instead of
// reconciling them in the request.
func (h *TransactionHandler) WithCallbackQueue(p CallbackPublisher) *TransactionHandler {
	h.callbacks = p
	return h
}

type withdrawRequest struct {
	Amount            int64  `json:"amount"`
	BankName          string `json:"bank_name"`
	BankAccountName   string `json:"bank_account_name"`
	BankAccountNumber string `json:"bank_account_number"`
}

type updateWithdrawRequest struct {
	Proof string `json:"proof"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

func (h *TransactionHandler) Checkout(ctx *xhttp.RequestCtx) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	session, err := h.svc.CreateTransaction(ctx, param(ctx, "groupId"), userID)
	if err != nil {
		if writeGatewayReply(ctx, err) {
			return
		}
		writeServiceError(ctx, err)
		return
	}
	writeRawJSON(ctx, xhttp.StatusCreated, session)
}

// writeGatewayReply forwards a JSON error reply of the payment gateway with its
// own status. Anything else is left to writeServiceError.
func writeGatewayReply(ctx *xhttp.RequestCtx, err error) bool {
	var statusErr *gateway.StatusError
	if !errors.As(err, &statusErr) || !json.Valid(statusErr.Body) {
		return false
	}
	code := statusErr.Code
	if code < 400 || code > 599 {
		code = xhttp.StatusBadGateway
	}
	logger.Warn("Payment gateway rejected checkout", "status", statusErr.Code, "path", string(ctx.Path()))
	writeRawJSON(ctx, code, statusErr.Body)
	return true
}

func writeRawJSON(ctx *xhttp.RequestCtx, status int, body []byte) {
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBody(body)
}

// Callback is the payment gateway webhook. It carries no user header.
func (h *TransactionHandler) Callback(ctx *xhttp.RequestCtx) {
	var n model.PaymentNotification
	if err := readJSON(ctx, &n); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(n.OrderID) == "" {
		writeError(ctx, xhttp.StatusBadRequest, "order_id is required")
		return
	}

	if h.callbacks != nil {
		id, err := h.callbacks.PublishJSON(ctx, n, map[string]string{"source": "webhook"})
		if err != nil {
			logger.Error("Failed to queue payment callback", "order_id", n.OrderID, "error", err)
			writeError(ctx, xhttp.StatusServiceUnavailable, "callback queue unavailable")
			return
		}
		logger.Debug("Payment callback queued", "order_id", n.OrderID, "queue_id", id)
		writeJSON(ctx, xhttp.StatusAccepted, messageResponse{Message: "queued"})
		return
	}

	res, err := h.svc.UpdateTransaction(ctx, n.OrderID, n.TransactionStatus)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, res)
}

func (h *TransactionHandler) GetTransaction(ctx *xhttp.RequestCtx) {
	if _, ok := currentUser(ctx); !ok {
		return
	}
	txn, err := h.svc.FindTransactionByID(ctx, param(ctx, "id"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, txn)
}

func (h *TransactionHandler) GetBalance(ctx *xhttp.RequestCtx) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	balance, err := h.svc.GetBalance(ctx, userID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, balanceResponse{Balance: balance})
}

func (h *TransactionHandler) GetRevenue(ctx *xhttp.RequestCtx) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	stat, err := h.svc.GetRevenueStat(ctx, userID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, stat)
}

func (h *TransactionHandler) CreateWithdraw(ctx *xhttp.RequestCtx) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req withdrawRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	p, err := h.svc.CreateWithdraw(ctx, model.WithdrawRequest{
		Amount:            req.Amount,
		BankName:          req.BankName,
		BankAccountName:   req.BankAccountName,
		BankAccountNumber: req.BankAccountNumber,
	}, userID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, p)
}

func (h *TransactionHandler) UpdateWithdraw(ctx *xhttp.RequestCtx) {
	if _, ok := currentUser(ctx); !ok {
		return
	}
	var req updateWithdrawRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	p, err := h.svc.UpdateWithdraw(ctx, param(ctx, "id"), req.Proof)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, p)
}

func (h *TransactionHandler) GetPayoutHistory(ctx *xhttp.RequestCtx) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	payouts, err := h.svc.GetHistoryPayouts(ctx, userID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, payouts)
}

func (h *TransactionHandler) GetAllPayouts(ctx *xhttp.RequestCtx) {
	if _, ok := currentUser(ctx); !ok {
		return
	}
	payouts, err := h.svc.GetAllHistoryPayouts(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, payouts)
}
