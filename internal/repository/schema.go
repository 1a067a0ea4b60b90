package repository

import (
	"context"
	"fmt"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/pkg/pg"
)

// Entities lists every table-backed entity, in dependency order. Production
// schemas come from the SQL migrations; this is used to AutoMigrate test stores.
func Entities() []any {
	return []any{
		&RoleEntity{},
		&UserEntity{},
		&PasswordResetEntity{},
		&RoomEntity{},
		&RoomMemberEntity{},
		&GroupEntity{},
		&GroupAssetEntity{},
		&MessageEntity{},
		&TransactionEntity{},
		&PayoutEntity{},
	}
}

// SeedRoles makes sure every role row exists.
func SeedRoles(ctx context.Context, db *pg.DB) error {
	for _, role := range []model.RoleType{model.RoleOwner, model.RoleMember, model.RoleUser, model.RoleAdmin} {
		err := db.Write(ctx).
			Where(RoleEntity{Role: string(role)}).
			FirstOrCreate(&RoleEntity{}).
			Error
		if err != nil {
			return fmt.Errorf("seed role %s: %w", role, err)
		}
	}
	return nil
}
