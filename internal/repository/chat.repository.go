package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrDuplicateMember = errors.New("user is already a member of the room")
)

type ChatRepository struct {
	*pg.DB
}

func NewChatRepository(db *pg.DB) *ChatRepository {
	return &ChatRepository{
		db,
	}
}

func (r *ChatRepository) CreateRoom(ctx context.Context, room *model.Room) (*model.Room, error) {
	entity := toRoomEntity(room)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	return toRoomModel(entity), nil
}

func (r *ChatRepository) FindRoomByID(ctx context.Context, id string) (*model.Room, error) {
	var entity RoomEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	return toRoomModel(&entity), nil
}

// AddMember inserts userID into the room under role. The (room, user) pair is
// unique, so a second insert fails with ErrDuplicateMember.
func (r *ChatRepository) AddMember(ctx context.Context, roomID, userID string, role model.RoleType) (*model.RoomMember, error) {
	roleID, err := findRoleID(r.Read(ctx), role)
	if err != nil {
		return nil, err
	}

	entity := &RoomMemberEntity{
		RoomID: roomID,
		UserID: userID,
		RoleID: roleID,
	}
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateMember
		}
		return nil, fmt.Errorf("add room member: %w", err)
	}
	entity.Role = &RoleEntity{Model: pg.Model{ID: roleID}, Role: string(role)}
	return toRoomMemberModel(entity), nil
}

func (r *ChatRepository) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := r.Read(ctx).
		Model(&RoomMemberEntity{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).
		Error
	if err != nil {
		return false, fmt.Errorf("check room member: %w", err)
	}
	return count > 0, nil
}

// ListMembers returns the room members in join order. When roles are given
// only members holding one of them are returned.
func (r *ChatRepository) ListMembers(ctx context.Context, roomID string, roles ...model.RoleType) ([]*model.DetailMember, error) {
	q := r.Read(ctx).
		Preload("User").
		Preload("Role").
		Where("room_id = ?", roomID)
	if len(roles) > 0 {
		names := make([]string, len(roles))
		for i, role := range roles {
			names[i] = string(role)
		}
		q = q.Where("role_id IN (?)", r.Read(ctx).Model(&RoleEntity{}).Select("id").Where("role IN ?", names))
	}

	var entities []*RoomMemberEntity
	if err := q.Order("joined_at").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("list room members: %w", err)
	}

	members := make([]*model.DetailMember, len(entities))
	for i, e := range entities {
		members[i] = toDetailMember(e)
	}
	return members, nil
}

func (r *ChatRepository) CountMembers(ctx context.Context, roomIDs ...string) (int64, error) {
	if len(roomIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.Read(ctx).
		Model(&RoomMemberEntity{}).
		Where("room_id IN ?", roomIDs).
		Count(&count).
		Error
	if err != nil {
		return 0, fmt.Errorf("count room members: %w", err)
	}
	return count, nil
}

func (r *ChatRepository) CreateMessage(ctx context.Context, m *model.Message) (*model.Message, error) {
	entity := toMessageEntity(m)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return toMessageModel(entity), nil
}

// ListMessages returns the room history oldest first with each sender loaded.
func (r *ChatRepository) ListMessages(ctx context.Context, roomID string) ([]*model.Message, error) {
	var entities []*MessageEntity
	err := r.Read(ctx).
		Preload("User").
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return toMessageModels(entities), nil
}

// ListRoomsByUser returns the rooms userID belongs to, most recently active
// first, each with its members and latest message.
func (r *ChatRepository) ListRoomsByUser(ctx context.Context, userID string) ([]*model.RoomSummary, error) {
	var rooms []*RoomEntity
	err := r.Read(ctx).
		Preload("Members.User").
		Where("id IN (?)", r.Read(ctx).Model(&RoomMemberEntity{}).Select("room_id").Where("user_id = ?", userID)).
		Find(&rooms).
		Error
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	if len(rooms) == 0 {
		return []*model.RoomSummary{}, nil
	}

	roomIDs := make([]string, len(rooms))
	for i, room := range rooms {
		roomIDs[i] = room.ID
	}

	var latest []*MessageEntity
	err = r.Read(ctx).
		Preload("User").
		Where("room_id IN ?", roomIDs).
		Where("created_at = (SELECT MAX(m2.created_at) FROM messages AS m2 WHERE m2.room_id = messages.room_id)").
		Find(&latest).
		Error
	if err != nil {
		return nil, fmt.Errorf("list latest messages: %w", err)
	}
	lastByRoom := make(map[string]*MessageEntity, len(latest))
	for _, m := range latest {
		lastByRoom[m.RoomID] = m
	}

	summaries := make([]*model.RoomSummary, len(rooms))
	for i, room := range rooms {
		s := &model.RoomSummary{
			ID:        room.ID,
			Name:      room.Name,
			IsGroup:   room.IsGroup,
			Members:   make([]model.PublicUser, 0, len(room.Members)),
			CreatedAt: room.CreatedAt,
		}
		for _, member := range room.Members {
			if member.User != nil {
				s.Members = append(s.Members, *toPublicUser(member.User))
			}
		}
		if m, ok := lastByRoom[room.ID]; ok {
			s.LastMessage = toMessageModel(m)
		}
		summaries[i] = s
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return lastActivity(summaries[i]).After(lastActivity(summaries[j]))
	})
	return summaries, nil
}

func lastActivity(s *model.RoomSummary) time.Time {
	if s.LastMessage != nil {
		return s.LastMessage.CreatedAt
	}
	return s.CreatedAt
}
