package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/internal/realtime"
	"github.com/nimasrn/community-gateway/internal/storage"
	"github.com/nimasrn/community-gateway/pkg/logger"
	"github.com/nimasrn/community-gateway/pkg/prom"
)

var ErrNotRoomMember = errors.New("you are not a member of this group")

type ChatRepository interface {
	CreateRoom(ctx context.Context, room *model.Room) (*model.Room, error)
	FindRoomByID(ctx context.Context, id string) (*model.Room, error)
	AddMember(ctx context.Context, roomID, userID string, role model.RoleType) (*model.RoomMember, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	CreateMessage(ctx context.Context, m *model.Message) (*model.Message, error)
	ListMessages(ctx context.Context, roomID string) ([]*model.Message, error)
	ListRoomsByUser(ctx context.Context, userID string) ([]*model.RoomSummary, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type ChatService struct {
	chatRepo ChatRepository
	users    UserFinder
	files    FileStore
	relay    realtime.Publisher
	now      func() time.Time
}

func NewChatService(chatRepo ChatRepository, users UserFinder, files FileStore, relay realtime.Publisher) *ChatService {
	if relay == nil {
		relay = realtime.NopRelay{}
	}
	return &ChatService{
		chatRepo: chatRepo,
		users:    users,
		files:    files,
		relay:    relay,
		now:      time.Now,
	}
}

// CreatePersonalRoom opens a one-to-one room. The sender owns it.
func (s *ChatService) CreatePersonalRoom(ctx context.Context, senderID, receiverID string) (*model.Room, error) {
	if receiverID == "" || receiverID == senderID {
		return nil, invalid(errors.New("receiver must be another user"))
	}
	if _, err := s.users.FindByID(ctx, receiverID); err != nil {
		return nil, err
	}

	var room *model.Room
	err := s.chatRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		room, err = s.chatRepo.CreateRoom(ctx, &model.Room{
			IsGroup:   false,
			CreatedBy: senderID,
		})
		if err != nil {
			return err
		}
		if _, err := s.chatRepo.AddMember(ctx, room.ID, senderID, model.RoleOwner); err != nil {
			return err
		}
		_, err = s.chatRepo.AddMember(ctx, room.ID, receiverID, model.RoleMember)
		return err
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// SendMessage stores a message from userID and broadcasts it to the room. A
// message with an attachment is an IMAGE whose content is the attachment URL.
// When the sender is not a member the uploaded attachment is discarded.
func (s *ChatService) SendMessage(ctx context.Context, req model.CreateMessageRequest, userID, attachment string) (*model.Message, error) {
	// the upload is only kept once a message references it
	discard := func() { s.files.Remove(storage.Attachment, attachment) }

	if err := req.Validate(attachment != ""); err != nil {
		discard()
		return nil, invalid(err)
	}

	room, err := s.chatRepo.FindRoomByID(ctx, req.RoomID)
	if err != nil {
		discard()
		return nil, err
	}

	member, err := s.chatRepo.IsMember(ctx, room.ID, userID)
	if err != nil {
		discard()
		return nil, err
	}
	if !member {
		discard()
		return nil, ErrNotRoomMember
	}

	sender, err := s.users.FindByID(ctx, userID)
	if err != nil {
		discard()
		return nil, err
	}

	m := &model.Message{
		RoomID:  room.ID,
		UserID:  userID,
		Content: strings.TrimSpace(req.Message),
		Type:    model.MessageText,
	}
	if attachment != "" {
		url := s.files.URL(storage.Attachment, attachment)
		m.Content = url
		m.ContentURL = &url
		m.Type = model.MessageImage
	}

	created, err := s.chatRepo.CreateMessage(ctx, m)
	if err != nil {
		discard()
		return nil, err
	}

	author := model.PublicUser{
		ID:       sender.ID,
		Name:     sender.Name,
		PhotoURL: s.files.URL(storage.UserPhoto, sender.Photo),
	}
	created.User = &author
	prom.AddMessageSent(string(created.Type))

	event := model.ChatEvent{
		Content:    created.Content,
		ContentURL: created.ContentURL,
		User:       author,
		Type:       created.Type,
		CreatedAt:  s.now(),
	}
	if err := s.relay.Publish(ctx, realtime.ChatRoomChannel(room.ID), realtime.ChatRoomEvent(room.ID), event); err != nil {
		logger.Warn("Chat event not published", "room_id", room.ID, "error", err)
	}
	return created, nil
}

// GetRecentRooms lists the rooms of userID, most recently active first.
func (s *ChatService) GetRecentRooms(ctx context.Context, userID string) ([]*model.RoomSummary, error) {
	rooms, err := s.chatRepo.ListRoomsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, r := range rooms {
		for i := range r.Members {
			r.Members[i].PhotoURL = s.files.URL(storage.UserPhoto, r.Members[i].Photo)
		}
		if r.LastMessage != nil && r.LastMessage.User != nil {
			r.LastMessage.User.PhotoURL = s.files.URL(storage.UserPhoto, r.LastMessage.User.Photo)
		}
	}
	return rooms, nil
}

// GetRoomMessages returns the full history of the room, oldest first.
func (s *ChatService) GetRoomMessages(ctx context.Context, roomID string) ([]*model.Message, error) {
	if _, err := s.chatRepo.FindRoomByID(ctx, roomID); err != nil {
		return nil, err
	}
	messages, err := s.chatRepo.ListMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		if m.User != nil {
			m.User.PhotoURL = s.files.URL(storage.UserPhoto, m.User.Photo)
		}
	}
	return messages, nil
}
