package model

import (
	"errors"
	"strings"
	"time"
)

type MessageType string

const (
	MessageText  MessageType = "TEXT"
	MessageImage MessageType = "IMAGE"
)

type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsGroup   bool      `json:"is_group"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type RoomMember struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	RoleID   string    `json:"role_id"`
	Role     RoleType  `json:"role,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// RoomSummary is a room as listed in a user's inbox.
type RoomSummary struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	IsGroup     bool         `json:"is_group"`
	Members     []PublicUser `json:"members"`
	LastMessage *Message     `json:"last_message,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type Message struct {
	ID         string      `json:"id"`
	RoomID     string      `json:"room_id"`
	UserID     string      `json:"user_id"`
	User       *PublicUser `json:"user,omitempty"`
	Content    string      `json:"content"`
	ContentURL *string     `json:"content_url"`
	Type       MessageType `json:"type"`
	CreatedAt  time.Time   `json:"created_at"`
}

type CreateMessageRequest struct {
	RoomID  string
	Message string
}

func (r CreateMessageRequest) Validate(hasAttachment bool) error {
	if strings.TrimSpace(r.RoomID) == "" {
		return errors.New("room_id is required")
	}
	if !hasAttachment && strings.TrimSpace(r.Message) == "" {
		return errors.New("message is required")
	}
	return nil
}

// ChatEvent is the realtime payload broadcast to a room channel.
type ChatEvent struct {
	Content    string      `json:"content"`
	ContentURL *string     `json:"content_url"`
	User       PublicUser  `json:"user"`
	Type       MessageType `json:"type"`
	CreatedAt  time.Time   `json:"created_at"`
}
