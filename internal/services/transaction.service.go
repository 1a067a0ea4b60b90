package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gateway "github.com/nimasrn/community-gateway/internal/gateways"
	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/internal/storage"
	"github.com/nimasrn/community-gateway/pkg/logger"
	"github.com/nimasrn/community-gateway/pkg/prom"
)

var (
	ErrInsufficientBalance = errors.New("failed to create withdraw: insufficient balance")
	ErrInvalidTransition   = errors.New("transaction already settled with a different status")
)

const revenueMonths = 8

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	FindByID(ctx context.Context, id string) (*model.Transaction, error)
	CompletePending(ctx context.Context, id string, status model.TransactionType) (bool, error)
	SumSuccessByOwner(ctx context.Context, ownerID string) (int64, error)
	ListSuccessByOwner(ctx context.Context, ownerID string) ([]*model.Transaction, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type PayoutRepository interface {
	Create(ctx context.Context, p *model.Payout) (*model.Payout, error)
	MarkPaid(ctx context.Context, id, proof string) (*model.Payout, error)
	SumSuccessByUser(ctx context.Context, userID string) (int64, error)
	List(ctx context.Context, userID string) ([]*model.Payout, error)
}

type GroupLookup interface {
	FindByID(ctx context.Context, id string) (*model.Group, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.OwnGroup, error)
}

type Membership interface {
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	AddMember(ctx context.Context, roomID, userID string, role model.RoleType) (*model.RoomMember, error)
	CountMembers(ctx context.Context, roomIDs ...string) (int64, error)
}

type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	LockByID(ctx context.Context, id string) error
}

type PaymentGateway interface {
	CreateCheckout(ctx context.Context, r gateway.CheckoutRequest) (json.RawMessage, error)
}

type TransactionService struct {
	txnRepo    TransactionRepository
	payoutRepo PayoutRepository
	groups     GroupLookup
	members    Membership
	accounts   AccountRepository
	payments   PaymentGateway
	files      FileStore
	now        func() time.Time
}

func NewTransactionService(
	txnRepo TransactionRepository,
	payoutRepo PayoutRepository,
	groups GroupLookup,
	members Membership,
	accounts AccountRepository,
	payments PaymentGateway,
	files FileStore,
) *TransactionService {
	return &TransactionService{
		txnRepo:    txnRepo,
		payoutRepo: payoutRepo,
		groups:     groups,
		members:    members,
		accounts:   accounts,
		payments:   payments,
		files:      files,
		now:        time.Now,
	}
}

// CreateTransaction records a PENDING purchase of a paid group and opens a
// checkout at the payment gateway. The gateway response is returned verbatim.
func (s *TransactionService) CreateTransaction(ctx context.Context, groupID, userID string) (json.RawMessage, error) {
	g, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	joined, err := s.members.IsMember(ctx, g.RoomID, userID)
	if err != nil {
		return nil, err
	}
	if joined {
		return nil, ErrAlreadyJoined
	}
	if g.Type == model.GroupFree {
		return nil, ErrGroupIsFree
	}

	buyer, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	txn, err := s.txnRepo.Create(ctx, &model.Transaction{
		Price:   g.Price,
		OwnerID: g.OwnerID,
		UserID:  userID,
		GroupID: g.ID,
		Type:    model.TransactionPending,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Transaction created", "transaction_id", txn.ID, "group_id", g.ID, "price", txn.Price)

	return s.payments.CreateCheckout(ctx, gateway.CheckoutRequest{
		OrderID:     txn.ID,
		GrossAmount: txn.Price,
		Email:       buyer.Email,
	})
}

func (s *TransactionService) FindTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	txn, err := s.txnRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	g, err := s.groups.FindByID(ctx, txn.GroupID)
	if err != nil {
		return nil, err
	}
	total, err := s.members.CountMembers(ctx, g.RoomID)
	if err != nil {
		return nil, err
	}
	txn.Group = &model.GroupSummary{
		ID:           g.ID,
		Name:         g.Name,
		About:        g.About,
		Photo:        g.Photo,
		PhotoURL:     s.files.URL(storage.GroupPhoto, g.Photo),
		Type:         g.Type,
		TotalMembers: total,
	}
	return txn, nil
}

// reconcileTarget maps a gateway notification status to the terminal state it
// settles a transaction in.
func reconcileTarget(status string) (model.TransactionType, bool) {
	switch status {
	case "capture", "settlement":
		return model.TransactionSuccess, true
	case "deny", "expire", "failure":
		return model.TransactionFailed, true
	default:
		return "", false
	}
}

// UpdateTransaction applies a payment notification. A settled payment admits
// the payer to the group in the same database transaction. Statuses that do
// not settle anything yield an empty result. Replaying a notification is a
// no-op; contradicting an earlier one is ErrInvalidTransition.
func (s *TransactionService) UpdateTransaction(ctx context.Context, orderID, status string) (*model.ReconcileResult, error) {
	target, ok := reconcileTarget(status)
	if !ok {
		return &model.ReconcileResult{}, nil
	}

	err := s.txnRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		won, err := s.txnRepo.CompletePending(ctx, orderID, target)
		if err != nil {
			return err
		}
		txn, err := s.txnRepo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !won {
			if txn.Type != target {
				return ErrInvalidTransition
			}
			logger.Debug("Duplicate payment notification", "transaction_id", orderID, "status", status)
			return nil
		}
		if target != model.TransactionSuccess {
			return nil
		}

		g, err := s.groups.FindByID(ctx, txn.GroupID)
		if err != nil {
			return err
		}
		joined, err := s.members.IsMember(ctx, g.RoomID, txn.UserID)
		if err != nil || joined {
			return err
		}
		_, err = s.members.AddMember(ctx, g.RoomID, txn.UserID, model.RoleMember)
		return err
	})
	if err != nil {
		prom.AddReconciliation("error")
		return nil, err
	}

	prom.AddReconciliation(string(target))
	logger.Info("Transaction reconciled", "transaction_id", orderID, "status", target)
	return &model.ReconcileResult{TransactionID: orderID}, nil
}

// GetBalance is the owner's settled revenue minus the payouts already paid.
func (s *TransactionService) GetBalance(ctx context.Context, userID string) (int64, error) {
	revenue, err := s.txnRepo.SumSuccessByOwner(ctx, userID)
	if err != nil {
		return 0, err
	}
	paid, err := s.payoutRepo.SumSuccessByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return revenue - paid, nil
}

func (s *TransactionService) GetRevenueStat(ctx context.Context, userID string) (*model.RevenueStat, error) {
	balance, err := s.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns, err := s.txnRepo.ListSuccessByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	groups, err := s.groups.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	stat := &model.RevenueStat{
		Balance:               balance,
		LatestMembers:         txns,
		TransactionsPerMonths: revenueByMonth(s.now(), txns, revenueMonths),
	}
	if stat.LatestMembers == nil {
		stat.LatestMembers = []*model.Transaction{}
	}
	for _, g := range groups {
		if g.Type == model.GroupPaid {
			stat.TotalVipGroups++
			stat.TotalVipMembers += g.TotalMembers
		}
	}
	for _, t := range txns {
		stat.TotalRevenue += t.Price
		if t.User != nil {
			t.User.PhotoURL = s.files.URL(storage.UserPhoto, t.User.Photo)
		}
		if t.Group != nil {
			t.Group.PhotoURL = s.files.URL(storage.GroupPhoto, t.Group.Photo)
		}
	}
	return stat, nil
}

// revenueByMonth buckets SUCCESS transactions into the n calendar months ending
// with the month of now, oldest first.
func revenueByMonth(now time.Time, txns []*model.Transaction, n int) []model.MonthlyRevenue {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	months := make([]model.MonthlyRevenue, n)
	for i := range months {
		m := first.AddDate(0, i-n+1, 0)
		months[i] = model.MonthlyRevenue{Month: m.Format("Jan"), Year: m.Year()}
	}

	start := first.AddDate(0, 1-n, 0)
	for _, t := range txns {
		if t.Type != model.TransactionSuccess {
			continue
		}
		at := t.CreatedAt.In(now.Location())
		if at.Before(start) || !at.Before(first.AddDate(0, 1, 0)) {
			continue
		}
		idx := (at.Year()-start.Year())*12 + int(at.Month()) - int(start.Month())
		months[idx].Total += t.Price
	}
	return months
}

// CreateWithdraw requests a payout of the owner's balance. The owner row is
// locked for the duration, so concurrent withdrawals cannot overdraw.
func (s *TransactionService) CreateWithdraw(ctx context.Context, req model.WithdrawRequest, userID string) (*model.Payout, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	var payout *model.Payout
	err := s.txnRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.LockByID(ctx, userID); err != nil {
			return err
		}
		balance, err := s.GetBalance(ctx, userID)
		if err != nil {
			return err
		}
		if req.Amount > balance {
			return ErrInsufficientBalance
		}

		payout, err = s.payoutRepo.Create(ctx, &model.Payout{
			UserID:            userID,
			Amount:            req.Amount,
			BankName:          req.BankName,
			BankAccountName:   req.BankAccountName,
			BankAccountNumber: req.BankAccountNumber,
			Status:            model.PayoutPending,
		})
		return err
	})
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		prom.AddWithdrawal("insufficient")
		return nil, err
	case err != nil:
		prom.AddWithdrawal("error")
		return nil, err
	}

	prom.AddWithdrawal("accepted")
	logger.Info("Withdraw requested", "payout_id", payout.ID, "user_id", userID, "amount", payout.Amount)
	return payout, nil
}

// UpdateWithdraw marks the payout as paid with the transfer proof.
func (s *TransactionService) UpdateWithdraw(ctx context.Context, id, proof string) (*model.Payout, error) {
	if proof == "" {
		return nil, invalid(errors.New("proof is required"))
	}
	p, err := s.payoutRepo.MarkPaid(ctx, id, proof)
	if err != nil {
		return nil, err
	}
	s.fillProofURL(p)
	return p, nil
}

func (s *TransactionService) GetHistoryPayouts(ctx context.Context, userID string) ([]*model.Payout, error) {
	return s.listPayouts(ctx, userID)
}

func (s *TransactionService) GetAllHistoryPayouts(ctx context.Context) ([]*model.Payout, error) {
	return s.listPayouts(ctx, "")
}

func (s *TransactionService) listPayouts(ctx context.Context, userID string) ([]*model.Payout, error) {
	payouts, err := s.payoutRepo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, p := range payouts {
		s.fillProofURL(p)
	}
	return payouts, nil
}

func (s *TransactionService) fillProofURL(p *model.Payout) {
	if p.Proof != nil {
		p.ProofURL = s.files.URL(storage.PayoutProof, *p.Proof)
	}
}
