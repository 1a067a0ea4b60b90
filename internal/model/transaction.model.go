package model

import (
	"errors"
	"strings"
	"time"
)

type TransactionType string

const (
	TransactionPending TransactionType = "PENDING"
	TransactionSuccess TransactionType = "SUCCESS"
	TransactionFailed  TransactionType = "FAILED"
)

type Transaction struct {
	ID        string          `json:"id"`
	Price     int64           `json:"price"`
	OwnerID   string          `json:"owner_id"`
	UserID    string          `json:"user_id"`
	GroupID   string          `json:"group_id"`
	Type      TransactionType `json:"type"`
	User      *PublicUser     `json:"user,omitempty"`
	Group     *GroupSummary   `json:"group,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// PaymentNotification is the webhook body the payment gateway posts back.
type PaymentNotification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
}

// ReconcileResult is empty when the notification status is not actionable.
type ReconcileResult struct {
	TransactionID string `json:"transaction_id,omitempty"`
}

type MonthlyRevenue struct {
	Month string `json:"month"`
	Year  int    `json:"year"`
	Total int64  `json:"total"`
}

type RevenueStat struct {
	Balance               int64            `json:"balance"`
	TotalVipGroups        int              `json:"total_vip_groups"`
	TotalVipMembers       int64            `json:"total_vip_members"`
	TotalRevenue          int64            `json:"total_revenue"`
	LatestMembers         []*Transaction   `json:"latest_members"`
	TransactionsPerMonths []MonthlyRevenue `json:"transactions_per_months"`
}

type PayoutStatus string

const (
	PayoutPending PayoutStatus = "PENDING"
	PayoutSuccess PayoutStatus = "SUCCESS"
)

type Payout struct {
	ID                string       `json:"id"`
	UserID            string       `json:"user_id"`
	Amount            int64        `json:"amount"`
	BankName          string       `json:"bank_name"`
	BankAccountName   string       `json:"bank_account_name"`
	BankAccountNumber string       `json:"bank_account_number"`
	Status            PayoutStatus `json:"status"`
	Proof             *string      `json:"proof"`
	ProofURL          string       `json:"proof_url,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

type WithdrawRequest struct {
	Amount            int64
	BankName          string
	BankAccountName   string
	BankAccountNumber string
}

func (r WithdrawRequest) Validate() error {
	if r.Amount <= 0 {
		return errors.New("amount must be positive")
	}
	if strings.TrimSpace(r.BankName) == "" {
		return errors.New("bank_name is required")
	}
	if strings.TrimSpace(r.BankAccountName) == "" {
		return errors.New("bank_account_name is required")
	}
	if strings.TrimSpace(r.BankAccountNumber) == "" {
		return errors.New("bank_account_number is required")
	}
	return nil
}
