package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/internal/repository"
	"github.com/nimasrn/community-gateway/pkg/pg"
	"github.com/nimasrn/community-gateway/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB returns a migrated, role-seeded in-memory SQLite store.
func SetupTestDB(t *testing.T) *pg.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(repository.Entities()...))

	pgDB := pg.Wrap(db)
	require.NoError(t, repository.SeedRoles(context.Background(), pgDB))
	return pgDB
}

func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)

	// adapters are cached per connection name
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	return mr, adapter
}

func CreateTestUser(t *testing.T, db *pg.DB, email, name string) *model.User {
	t.Helper()
	u, err := repository.NewUserRepository(db).Create(context.Background(), &model.User{
		Email:    email,
		Password: "hash",
		Name:     name,
	}, model.RoleUser)
	require.NoError(t, err)
	return u
}

// CreateSettledTransaction records a SUCCESS purchase of groupID by buyerID.
func CreateSettledTransaction(t *testing.T, db *pg.DB, g *model.Group, buyerID string, createdAt time.Time) *model.Transaction {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewTransactionRepository(db)

	txn, err := repo.Create(ctx, &model.Transaction{
		Price:   g.Price,
		OwnerID: g.OwnerID,
		UserID:  buyerID,
		GroupID: g.ID,
		Type:    model.TransactionPending,
	})
	require.NoError(t, err)

	_, err = repo.CompletePending(ctx, txn.ID, model.TransactionSuccess)
	require.NoError(t, err)

	if !createdAt.IsZero() {
		err = db.Write(ctx).Model(&repository.TransactionEntity{}).
			Where("id = ?", txn.ID).
			Update("created_at", createdAt).Error
		require.NoError(t, err)
	}
	return txn
}

// CreatePaidPayout stores a payout and fulfils it, so it counts against the
// user's balance.
func CreatePaidPayout(t *testing.T, db *pg.DB, userID string, amount int64) *model.Payout {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewPayoutRepository(db)

	p, err := repo.Create(ctx, &model.Payout{
		UserID:            userID,
		Amount:            amount,
		BankName:          "BCA",
		BankAccountName:   "Owner",
		BankAccountNumber: "0123456789",
		Status:            model.PayoutPending,
	})
	require.NoError(t, err)

	paid, err := repo.MarkPaid(ctx, p.ID, "seed-proof.png")
	require.NoError(t, err)
	return paid
}

func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func Ptr[T any](v T) *T {
	return &v
}
