package processor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/internal/queue"
	"github.com/nimasrn/community-gateway/internal/services"
	"github.com/nimasrn/community-gateway/pkg/logger"
	"github.com/nimasrn/community-gateway/pkg/prom"
)

var errLockHeld = errors.New("callback lock held by another consumer")

// Reconciler applies a payment notification to the ledger.
type Reconciler interface {
	UpdateTransaction(ctx context.Context, orderID, status string) (*model.ReconcileResult, error)
}

type PaymentCallbackProcessor struct {
	reconciler  Reconciler
	idempotency *IdempotencyService
}

func NewPaymentCallbackProcessor(reconciler Reconciler, idempotency *IdempotencyService) *PaymentCallbackProcessor {
	return &PaymentCallbackProcessor{
		reconciler:  reconciler,
		idempotency: idempotency,
	}
}

func (p *PaymentCallbackProcessor) GetType() string {
	return "payment-callback"
}

// Process reconciles one queued payment notification. A nil return acks the
// stream entry; an error leaves it pending for redelivery.
func (p *PaymentCallbackProcessor) Process(ctx context.Context, msg *queue.Message) error {
	var n model.PaymentNotification
	if err := json.Unmarshal(msg.Data, &n); err != nil || strings.TrimSpace(n.OrderID) == "" {
		// redelivery can't fix the payload
		logger.Error("Dropping malformed payment callback", "queue_id", msg.ID, "error", err)
		prom.AddCallbackProcessed("malformed")
		return nil
	}

	key := n.OrderID + ":" + n.TransactionStatus
	pc, err := p.idempotency.AcquireProcessingLock(ctx, key)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyProcessed):
			logger.Info("Payment callback already processed", "order_id", n.OrderID, "status", n.TransactionStatus)
			prom.AddCallbackProcessed("duplicate")
			return nil
		case errors.Is(err, ErrMaxRetriesExceeded):
			logger.Error("Payment callback exhausted retries", "order_id", n.OrderID, "status", n.TransactionStatus)
			prom.AddCallbackProcessed("exhausted")
			return nil
		case errors.Is(err, ErrLockAcquireFailed):
			logger.Debug("Payment callback locked elsewhere", "order_id", n.OrderID)
			return errLockHeld
		}
		return err
	}
	defer func() {
		if pc.lockAcquired {
			_ = p.idempotency.ReleaseLock(ctx, pc)
		}
	}()

	res, err := p.reconciler.UpdateTransaction(ctx, n.OrderID, n.TransactionStatus)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTransition) || errors.Is(err, services.ErrTransactionNotFound) {
			logger.Warn("Rejected payment callback",
				"order_id", n.OrderID,
				"status", n.TransactionStatus,
				"error", err)
			if markErr := p.idempotency.MarkSuccess(ctx, pc); markErr != nil {
				logger.Error("Failed to mark callback handled", "order_id", n.OrderID, "error", markErr)
			}
			prom.AddCallbackProcessed("rejected")
			return nil
		}

		if markErr := p.idempotency.MarkFailure(ctx, pc, err); markErr != nil {
			logger.Error("Failed to mark callback failure", "order_id", n.OrderID, "error", markErr)
		}
		prom.AddCallbackProcessed("failed")
		return err
	}

	if markErr := p.idempotency.MarkSuccess(ctx, pc); markErr != nil {
		logger.Error("Failed to mark callback handled", "order_id", n.OrderID, "error", markErr)
	}

	result := "reconciled"
	if res == nil || res.TransactionID == "" {
		result = "ignored"
	}
	logger.Info("Payment callback processed",
		"order_id", n.OrderID,
		"status", n.TransactionStatus,
		"result", result,
		"retry_count", pc.RetryCount)
	prom.AddCallbackProcessed(result)
	return nil
}
