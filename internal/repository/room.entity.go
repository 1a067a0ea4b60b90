package repository

import (
	"time"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/pkg/pg"
)

type RoomEntity struct {
	pg.Model
	Name      string              `gorm:"column:name;not null;default:''"`
	IsGroup   bool                `gorm:"column:is_group;not null;default:false"`
	CreatedBy string              `gorm:"column:created_by;not null"`
	Members   []*RoomMemberEntity `gorm:"foreignKey:RoomID"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (RoomEntity) TableName() string {
	return "rooms"
}

type RoomMemberEntity struct {
	pg.Model
	RoomID   string      `gorm:"column:room_id;not null;uniqueIndex:idx_room_member"`
	UserID   string      `gorm:"column:user_id;not null;uniqueIndex:idx_room_member;index"`
	RoleID   string      `gorm:"column:role_id;not null"`
	Role     *RoleEntity `gorm:"foreignKey:RoleID"`
	User     *UserEntity `gorm:"foreignKey:UserID"`
	JoinedAt time.Time   `gorm:"column:joined_at;autoCreateTime"`
}

func (RoomMemberEntity) TableName() string {
	return "room_members"
}

type MessageEntity struct {
	pg.Model
	RoomID     string      `gorm:"column:room_id;not null;index:idx_messages_room_id_created_at"`
	UserID     string      `gorm:"column:user_id;not null"`
	User       *UserEntity `gorm:"foreignKey:UserID"`
	Content    string      `gorm:"column:content;not null;default:''"`
	ContentURL *string     `gorm:"column:content_url"`
	Type       string      `gorm:"column:type;not null;default:TEXT"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime;index:idx_messages_room_id_created_at"`
}

func (MessageEntity) TableName() string {
	return "messages"
}

func toRoomEntity(m *model.Room) *RoomEntity {
	if m == nil {
		return nil
	}
	return &RoomEntity{
		Model:     pg.Model{ID: m.ID},
		Name:      m.Name,
		IsGroup:   m.IsGroup,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
	}
}

func toRoomModel(e *RoomEntity) *model.Room {
	if e == nil {
		return nil
	}
	return &model.Room{
		ID:        e.ID,
		Name:      e.Name,
		IsGroup:   e.IsGroup,
		CreatedBy: e.CreatedBy,
		CreatedAt: e.CreatedAt,
	}
}

func toRoomMemberModel(e *RoomMemberEntity) *model.RoomMember {
	if e == nil {
		return nil
	}
	m := &model.RoomMember{
		ID:       e.ID,
		RoomID:   e.RoomID,
		UserID:   e.UserID,
		RoleID:   e.RoleID,
		JoinedAt: e.JoinedAt,
	}
	if e.Role != nil {
		m.Role = model.RoleType(e.Role.Role)
	}
	return m
}

func toDetailMember(e *RoomMemberEntity) *model.DetailMember {
	if e == nil {
		return nil
	}
	m := &model.DetailMember{
		UserID:   e.UserID,
		JoinedAt: e.JoinedAt,
	}
	if e.User != nil {
		m.Name = e.User.Name
		m.Photo = e.User.Photo
	}
	if e.Role != nil {
		m.Role = model.RoleType(e.Role.Role)
	}
	return m
}

func toMessageEntity(m *model.Message) *MessageEntity {
	if m == nil {
		return nil
	}
	return &MessageEntity{
		Model:      pg.Model{ID: m.ID},
		RoomID:     m.RoomID,
		UserID:     m.UserID,
		Content:    m.Content,
		ContentURL: m.ContentURL,
		Type:       string(m.Type),
		CreatedAt:  m.CreatedAt,
	}
}

func toMessageModel(e *MessageEntity) *model.Message {
	if e == nil {
		return nil
	}
	return &model.Message{
		ID:         e.ID,
		RoomID:     e.RoomID,
		UserID:     e.UserID,
		User:       toPublicUser(e.User),
		Content:    e.Content,
		ContentURL: e.ContentURL,
		Type:       model.MessageType(e.Type),
		CreatedAt:  e.CreatedAt,
	}
}

func toMessageModels(entities []*MessageEntity) []*model.Message {
	if entities == nil {
		return nil
	}
	models := make([]*model.Message, len(entities))
	for i, e := range entities {
		models[i] = toMessageModel(e)
	}
	return models
}
