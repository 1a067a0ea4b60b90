package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/pkg/pg"
	"gorm.io/gorm"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return toTransactionModel(entity), nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).
		Preload("Group").
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return toTransactionModel(&entity), nil
}

// CompletePending moves a PENDING transaction to status. It reports false when
// the row exists but was no longer PENDING, so only one caller ever wins.
func (r *TransactionRepository) CompletePending(ctx context.Context, id string, status model.TransactionType) (bool, error) {
	result := r.Write(ctx).
		Model(&TransactionEntity{}).
		Where("id = ? AND type = ?", id, string(model.TransactionPending)).
		Update("type", string(status))
	if result.Error != nil {
		return false, fmt.Errorf("update transaction: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	var count int64
	err := r.Write(ctx).
		Model(&TransactionEntity{}).
		Where("id = ?", id).
		Count(&count).
		Error
	if err != nil {
		return false, fmt.Errorf("check transaction: %w", err)
	}
	if count == 0 {
		return false, ErrTransactionNotFound
	}
	return false, nil
}

func (r *TransactionRepository) SumSuccessByOwner(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	err := r.Read(ctx).
		Model(&TransactionEntity{}).
		Select("COALESCE(SUM(price), 0)").
		Where("owner_id = ? AND type = ?", ownerID, string(model.TransactionSuccess)).
		Scan(&total).
		Error
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return total, nil
}

// ListSuccessByOwner returns the owner's SUCCESS transactions, newest first,
// with payer and group loaded.
func (r *TransactionRepository) ListSuccessByOwner(ctx context.Context, ownerID string) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Read(ctx).
		Preload("User").
		Preload("Group").
		Where("owner_id = ? AND type = ?", ownerID, string(model.TransactionSuccess)).
		Order("created_at DESC").
		Find(&entities).
		Error
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toTransactionModels(entities), nil
}
