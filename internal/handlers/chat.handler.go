package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/nimasrn/community-gateway/internal/model"
	xhttp "github.com/nimasrn/community-gateway/pkg/http"
)

type ChatService interface {
	CreatePersonalRoom(ctx context.Context, senderID, receiverID string) (*model.Room, error)
	SendMessage(ctx context.Context, req model.CreateMessageRequest, userID, attachment string) (*model.Message, error)
	GetRecentRooms(ctx context.Context, userID string) ([]*model.RoomSummary, error)
	GetRoomMessages(ctx context.Context, roomID string) ([]*model.Message, error)
}

type ChatHandler struct {
	svc ChatService
}

func RegisterChatRoutes(e *router.Group, h *ChatHandler) {
	e.POST("/chat/rooms/personal", h.CreatePersonalRoom)
	e.GET("/chat/rooms", h.GetRecentRooms)
	e.GET("/chat/rooms/{id}/messages", h.GetRoomMessages)
	e.POST("/chat/messages", h.SendMessage)
}

func NewChatHandler(chatService ChatService) *ChatHandler {
	return &ChatHandler{
		svc: chatService,
	}
}

type personalRoomRequest struct {
	ReceiverID string `json:"receiver_id"`
}

type sendMessageRequest struct {
	RoomID     string `json:"room_id"`
	Message    string `json:"message"`
	Attachment string `json:"attachment"`
}

func (h *ChatHandler) CreatePersonalRoom(ctx *xhttp.RequestCtx) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req personalRoomRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	room, err := h.svc.CreatePersonalRoom(ctx, userID, req.ReceiverID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, room)
}

func (h *ChatHandler) SendMessage(ctx *xhttp.RequestCtx) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	msg, err := h.svc.SendMessage(ctx, model.CreateMessageRequest{RoomID: req.RoomID, Message: req.Message}, userID, req.Attachment)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, msg)
}

func (h *ChatHandler) GetRecentRooms(ctx *xhttp.RequestCtx) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	rooms, err := h.svc.GetRecentRooms(ctx, userID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, rooms)
}

func (h *ChatHandler) GetRoomMessages(ctx *xhttp.RequestCtx) {
	if _, ok := currentUser(ctx); !ok {
		return
	}
	msgs, err := h.svc.GetRoomMessages(ctx, param(ctx, "id"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, msgs)
}
