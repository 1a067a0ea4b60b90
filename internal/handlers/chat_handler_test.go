package handlers

import (
	"testing"

	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestChatHandler_CreatePersonalRoom(t *testing.T) {
	svc := new(MockChatService)
	h := NewChatHandler(svc)
	svc.On("CreatePersonalRoom", mock.Anything, "u1", "u2").Return(&model.Room{ID: "r1", CreatedBy: "u1"}, nil)
	svc.On("CreatePersonalRoom", mock.Anything, "u1", "u1").Return(nil, services.ErrInvalidInput)

	ctx := asUser(setupTestContext("POST", "/api/v1/chat/rooms/personal", mustJSON(personalRoomRequest{ReceiverID: "u2"})), "u1")
	h.CreatePersonalRoom(ctx)
	assert.Equal(t, 201, ctx.Response.StatusCode())

	ctx = asUser(setupTestContext("POST", "/api/v1/chat/rooms/personal", mustJSON(personalRoomRequest{ReceiverID: "u1"})), "u1")
	h.CreatePersonalRoom(ctx)
	assert.Equal(t, 400, ctx.Response.StatusCode())
}

func TestChatHandler_SendMessage(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		svc := new(MockChatService)
		h := NewChatHandler(svc)
		svc.On("SendMessage", mock.Anything, model.CreateMessageRequest{RoomID: "r1", Message: "hi"}, "u1", "").
			Return(&model.Message{ID: "m1", RoomID: "r1", Content: "hi", Type: model.MessageText}, nil)

		ctx := asUser(setupTestContext("POST", "/api/v1/chat/messages", mustJSON(sendMessageRequest{RoomID: "r1", Message: "hi"})), "u1")
		h.SendMessage(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("attachment forwarded", func(t *testing.T) {
		svc := new(MockChatService)
		h := NewChatHandler(svc)
		svc.On("SendMessage", mock.Anything, model.CreateMessageRequest{RoomID: "r1"}, "u1", "cat.png").
			Return(&model.Message{ID: "m2", Type: model.MessageImage}, nil)

		ctx := asUser(setupTestContext("POST", "/api/v1/chat/messages", mustJSON(sendMessageRequest{RoomID: "r1", Attachment: "cat.png"})), "u1")
		h.SendMessage(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("not a member", func(t *testing.T) {
		svc := new(MockChatService)
		h := NewChatHandler(svc)
		svc.On("SendMessage", mock.Anything, mock.Anything, "u9", "").Return(nil, services.ErrNotRoomMember)

		ctx := asUser(setupTestContext("POST", "/api/v1/chat/messages", mustJSON(sendMessageRequest{RoomID: "r1", Message: "hi"})), "u9")
		h.SendMessage(ctx)

		assert.Equal(t, 403, ctx.Response.StatusCode())
	})
}

func TestChatHandler_GetRoomMessages(t *testing.T) {
	svc := new(MockChatService)
	h := NewChatHandler(svc)
	svc.On("GetRoomMessages", mock.Anything, "r1").Return([]*model.Message{{ID: "m1"}}, nil)
	svc.On("GetRoomMessages", mock.Anything, "nope").Return(nil, services.ErrRoomNotFound)

	ctx := asUser(withParam(setupTestContext("GET", "/api/v1/chat/rooms/r1/messages", nil), "id", "r1"), "u1")
	h.GetRoomMessages(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())

	ctx = asUser(withParam(setupTestContext("GET", "/api/v1/chat/rooms/nope/messages", nil), "id", "nope"), "u1")
	h.GetRoomMessages(ctx)
	assert.Equal(t, 404, ctx.Response.StatusCode())
}

func TestChatHandler_GetRecentRooms(t *testing.T) {
	svc := new(MockChatService)
	h := NewChatHandler(svc)
	svc.On("GetRecentRooms", mock.Anything, "u1").Return([]*model.RoomSummary{{ID: "r1"}}, nil)

	ctx := asUser(setupTestContext("GET", "/api/v1/chat/rooms", nil), "u1")
	h.GetRecentRooms(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), `"id":"r1"`)
}
