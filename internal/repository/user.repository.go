package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrResetTokenNotFound = errors.New("reset token not found")
)

type UserRepository struct {
	*pg.DB
}

func NewUserRepository(db *pg.DB) *UserRepository {
	return &UserRepository{
		db,
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var entity UserEntity
	err := r.Read(ctx).
		Preload("Role").
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return toUserModel(&entity), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var entity UserEntity
	err := r.Read(ctx).
		Preload("Role").
		Where("email = ?", email).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return toUserModel(&entity), nil
}

func (r *UserRepository) CountByEmail(ctx context.Context, email string) (int64, error) {
	var count int64
	err := r.Read(ctx).
		Model(&UserEntity{}).
		Where("email = ?", email).
		Count(&count).
		Error
	if err != nil {
		return 0, fmt.Errorf("count users by email: %w", err)
	}
	return count, nil
}

// Create stores u under the given role. The password must already be hashed.
func (r *UserRepository) Create(ctx context.Context, u *model.User, role model.RoleType) (*model.User, error) {
	roleID, err := findRoleID(r.Read(ctx), role)
	if err != nil {
		return nil, err
	}

	entity := toUserEntity(u)
	entity.RoleID = roleID
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	entity.Role = &RoleEntity{Model: pg.Model{ID: roleID}, Role: string(role)}
	return toUserModel(entity), nil
}

func (r *UserRepository) UpdatePasswordByEmail(ctx context.Context, email, hash string) error {
	result := r.Write(ctx).
		Model(&UserEntity{}).
		Where("email = ?", email).
		Update("password", hash)
	if result.Error != nil {
		return fmt.Errorf("update password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// LockByID takes a row lock on the user for the rest of the surrounding
// transaction. It is a plain read on databases without FOR UPDATE support.
func (r *UserRepository) LockByID(ctx context.Context, id string) error {
	var entity UserEntity
	err := r.Write(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}

// SearchByName matches name case-insensitively, leaving out excludeID.
func (r *UserRepository) SearchByName(ctx context.Context, name, excludeID string) ([]*model.PublicUser, error) {
	var entities []*UserEntity
	q := r.Read(ctx).
		Where("LOWER(name) LIKE LOWER(?)", likePattern(name))
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Order("name").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	people := make([]*model.PublicUser, len(entities))
	for i, e := range entities {
		people[i] = toPublicUser(e)
	}
	return people, nil
}

func (r *UserRepository) CreatePasswordReset(ctx context.Context, userID, token string) (*model.PasswordReset, error) {
	entity := &PasswordResetEntity{
		UserID: userID,
		Token:  token,
	}
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, fmt.Errorf("create password reset: %w", err)
	}
	return toPasswordResetModel(entity), nil
}

// FindPasswordReset resolves a token together with the email of its owner.
func (r *UserRepository) FindPasswordReset(ctx context.Context, token string) (*model.PasswordReset, error) {
	var entity PasswordResetEntity
	err := r.Read(ctx).
		Preload("User").
		Where("token = ?", token).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResetTokenNotFound
		}
		return nil, fmt.Errorf("find password reset: %w", err)
	}
	return toPasswordResetModel(&entity), nil
}

func (r *UserRepository) DeletePasswordReset(ctx context.Context, id string) error {
	result := r.Write(ctx).
		Where("id = ?", id).
		Delete(&PasswordResetEntity{})
	if result.Error != nil {
		return fmt.Errorf("delete password reset: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrResetTokenNotFound
	}
	return nil
}

// FindJoinedGroups lists the groups whose room userID is a member of.
func (r *UserRepository) FindJoinedGroups(ctx context.Context, userID string) ([]model.ProfileGroup, error) {
	var rows []struct {
		ID       string
		Name     string
		Photo    string
		Type     string
		JoinedAt time.Time
	}
	err := r.Read(ctx).
		Table(`"groups" AS g`).
		Select("g.id, g.name, g.photo, g.type, rm.joined_at").
		Joins("JOIN room_members AS rm ON rm.room_id = g.room_id").
		Where("rm.user_id = ?", userID).
		Order("rm.joined_at DESC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("find joined groups: %w", err)
	}

	groups := make([]model.ProfileGroup, len(rows))
	for i, row := range rows {
		groups[i] = model.ProfileGroup{
			ID:       row.ID,
			Name:     row.Name,
			Photo:    row.Photo,
			Type:     model.GroupType(row.Type),
			JoinedAt: row.JoinedAt,
		}
	}
	return groups, nil
}

func findRoleID(db *gorm.DB, role model.RoleType) (string, error) {
	var entity RoleEntity
	err := db.Select("id").Where("role = ?", string(role)).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s", ErrRoleNotFound, role)
		}
		return "", fmt.Errorf("find role: %w", err)
	}
	return entity.ID, nil
}

func likePattern(s string) string {
	return "%" + s + "%"
}
