package repository

import (
	"context"
	"testing"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/pkg/pg"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *pg.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// every pooled connection to :memory: would get its own empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(Entities()...))

	pgDB := pg.Wrap(db)
	require.NoError(t, SeedRoles(context.Background(), pgDB))
	return pgDB
}

func createTestUser(t *testing.T, db *pg.DB, email, name string) *model.User {
	t.Helper()
	u, err := NewUserRepository(db).Create(context.Background(), &model.User{
		Email:    email,
		Password: "hash",
		Name:     name,
	}, model.RoleUser)
	require.NoError(t, err)
	return u
}

// createTestGroup creates a room owned by ownerID and a group on top of it.
func createTestGroup(t *testing.T, db *pg.DB, ownerID, name string, typ model.GroupType, price int64) *model.Group {
	t.Helper()
	ctx := context.Background()
	chat := NewChatRepository(db)

	room, err := chat.CreateRoom(ctx, &model.Room{Name: name, IsGroup: true, CreatedBy: ownerID})
	require.NoError(t, err)
	_, err = chat.AddMember(ctx, room.ID, ownerID, model.RoleOwner)
	require.NoError(t, err)

	g, err := NewGroupRepository(db).Create(ctx, &model.Group{
		Name:    name,
		About:   "about " + name,
		Price:   price,
		Type:    typ,
		RoomID:  room.ID,
		OwnerID: ownerID,
	})
	require.NoError(t, err)
	return g
}
