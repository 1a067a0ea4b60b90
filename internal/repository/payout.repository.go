package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrPayoutNotFound    = errors.New("payout not found")
	ErrPayoutAlreadyPaid = errors.New("payout is already paid")
)

type PayoutRepository struct {
	*pg.DB
}

func NewPayoutRepository(db *pg.DB) *PayoutRepository {
	return &PayoutRepository{
		db,
	}
}

func (r *PayoutRepository) Create(ctx context.Context, p *model.Payout) (*model.Payout, error) {
	entity := toPayoutEntity(p)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, fmt.Errorf("create payout: %w", err)
	}
	return toPayoutModel(entity), nil
}

func (r *PayoutRepository) FindByID(ctx context.Context, id string) (*model.Payout, error) {
	var entity PayoutEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, fmt.Errorf("find payout: %w", err)
	}
	return toPayoutModel(&entity), nil
}

// MarkPaid moves a PENDING payout to SUCCESS and attaches the transfer proof.
// A payout is paid at most once; later calls leave its proof untouched.
func (r *PayoutRepository) MarkPaid(ctx context.Context, id, proof string) (*model.Payout, error) {
	result := r.Write(ctx).
		Model(&PayoutEntity{}).
		Where("id = ? AND status = ?", id, string(model.PayoutPending)).
		Updates(map[string]any{
			"status": string(model.PayoutSuccess),
			"proof":  proof,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("update payout: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrPayoutAlreadyPaid
	}
	return r.FindByID(ctx, id)
}

func (r *PayoutRepository) SumSuccessByUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.Read(ctx).
		Model(&PayoutEntity{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status = ?", userID, string(model.PayoutSuccess)).
		Scan(&total).
		Error
	if err != nil {
		return 0, fmt.Errorf("sum payouts: %w", err)
	}
	return total, nil
}

// List returns payouts newest first. An empty userID lists every user's payouts.
func (r *PayoutRepository) List(ctx context.Context, userID string) ([]*model.Payout, error) {
	q := r.Read(ctx)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	var entities []*PayoutEntity
	if err := q.Order("created_at DESC").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	return toPayoutModels(entities), nil
}
