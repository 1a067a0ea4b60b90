package repository

import (
	"time"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/pkg/pg"
)

type RoleEntity struct {
	pg.Model
	Role string `gorm:"column:role;not null;uniqueIndex"`
}

func (RoleEntity) TableName() string {
	return "roles"
}

type UserEntity struct {
	pg.Model
	Email     string      `gorm:"column:email;not null;uniqueIndex"`
	Password  string      `gorm:"column:password;not null"`
	Name      string      `gorm:"column:name;not null"`
	Photo     string      `gorm:"column:photo;not null;default:''"`
	RoleID    string      `gorm:"column:role_id;not null"`
	Role      *RoleEntity `gorm:"foreignKey:RoleID"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
}

func (UserEntity) TableName() string {
	return "users"
}

type PasswordResetEntity struct {
	pg.Model
	UserID    string      `gorm:"column:user_id;not null"`
	Token     string      `gorm:"column:token;not null;uniqueIndex"`
	User      *UserEntity `gorm:"foreignKey:UserID"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
}

func (PasswordResetEntity) TableName() string {
	return "password_resets"
}

func toRoleModel(e *RoleEntity) *model.Role {
	if e == nil {
		return nil
	}
	return &model.Role{
		ID:   e.ID,
		Role: model.RoleType(e.Role),
	}
}

func toUserEntity(m *model.User) *UserEntity {
	if m == nil {
		return nil
	}
	return &UserEntity{
		Model:     pg.Model{ID: m.ID},
		Email:     m.Email,
		Password:  m.Password,
		Name:      m.Name,
		Photo:     m.Photo,
		RoleID:    m.RoleID,
		CreatedAt: m.CreatedAt,
	}
}

func toUserModel(e *UserEntity) *model.User {
	if e == nil {
		return nil
	}
	return &model.User{
		ID:        e.ID,
		Email:     e.Email,
		Password:  e.Password,
		Name:      e.Name,
		Photo:     e.Photo,
		RoleID:    e.RoleID,
		Role:      toRoleModel(e.Role),
		CreatedAt: e.CreatedAt,
	}
}

func toPublicUser(e *UserEntity) *model.PublicUser {
	if e == nil {
		return nil
	}
	return &model.PublicUser{
		ID:        e.ID,
		Name:      e.Name,
		Photo:     e.Photo,
		CreatedAt: e.CreatedAt,
	}
}

func toPasswordResetModel(e *PasswordResetEntity) *model.PasswordReset {
	if e == nil {
		return nil
	}
	m := &model.PasswordReset{
		ID:        e.ID,
		UserID:    e.UserID,
		Token:     e.Token,
		CreatedAt: e.CreatedAt,
	}
	if e.User != nil {
		m.Email = e.User.Email
	}
	return m
}
