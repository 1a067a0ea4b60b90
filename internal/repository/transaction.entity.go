package repository

import (
	"time"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/pkg/pg"
)

type TransactionEntity struct {
	pg.Model
	Price     int64        `gorm:"column:price;not null"`
	OwnerID   string       `gorm:"column:owner_id;not null;index"`
	UserID    string       `gorm:"column:user_id;not null"`
	User      *UserEntity  `gorm:"foreignKey:UserID"`
	GroupID   string       `gorm:"column:group_id;not null"`
	Group     *GroupEntity `gorm:"foreignKey:GroupID"`
	Type      string       `gorm:"column:type;not null;default:PENDING"`
	CreatedAt time.Time    `gorm:"column:created_at;autoCreateTime"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

type PayoutEntity struct {
	pg.Model
	UserID            string    `gorm:"column:user_id;not null;index"`
	Amount            int64     `gorm:"column:amount;not null"`
	BankName          string    `gorm:"column:bank_name;not null"`
	BankAccountName   string    `gorm:"column:bank_account_name;not null"`
	BankAccountNumber string    `gorm:"column:bank_account_number;not null"`
	Status            string    `gorm:"column:status;not null;default:PENDING"`
	Proof             *string   `gorm:"column:proof"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (PayoutEntity) TableName() string {
	return "payouts"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		Model:     pg.Model{ID: m.ID},
		Price:     m.Price,
		OwnerID:   m.OwnerID,
		UserID:    m.UserID,
		GroupID:   m.GroupID,
		Type:      string(m.Type),
		CreatedAt: m.CreatedAt,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	m := &model.Transaction{
		ID:        e.ID,
		Price:     e.Price,
		OwnerID:   e.OwnerID,
		UserID:    e.UserID,
		GroupID:   e.GroupID,
		Type:      model.TransactionType(e.Type),
		User:      toPublicUser(e.User),
		CreatedAt: e.CreatedAt,
	}
	if e.Group != nil {
		m.Group = &model.GroupSummary{
			ID:    e.Group.ID,
			Name:  e.Group.Name,
			About: e.Group.About,
			Photo: e.Group.Photo,
			Type:  model.GroupType(e.Group.Type),
		}
	}
	return m
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}

func toPayoutEntity(m *model.Payout) *PayoutEntity {
	if m == nil {
		return nil
	}
	return &PayoutEntity{
		Model:             pg.Model{ID: m.ID},
		UserID:            m.UserID,
		Amount:            m.Amount,
		BankName:          m.BankName,
		BankAccountName:   m.BankAccountName,
		BankAccountNumber: m.BankAccountNumber,
		Status:            string(m.Status),
		Proof:             m.Proof,
		CreatedAt:         m.CreatedAt,
	}
}

func toPayoutModel(e *PayoutEntity) *model.Payout {
	if e == nil {
		return nil
	}
	return &model.Payout{
		ID:                e.ID,
		UserID:            e.UserID,
		Amount:            e.Amount,
		BankName:          e.BankName,
		BankAccountName:   e.BankAccountName,
		BankAccountNumber: e.BankAccountNumber,
		Status:            model.PayoutStatus(e.Status),
		Proof:             e.Proof,
		CreatedAt:         e.CreatedAt,
	}
}

func toPayoutModels(entities []*PayoutEntity) []*model.Payout {
	if entities == nil {
		return nil
	}
	models := make([]*model.Payout, len(entities))
	for i, e := range entities {
		models[i] = toPayoutModel(e)
	}
	return models
}
