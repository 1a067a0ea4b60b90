package handlers

import (
	"context"
	"encoding/json"

	"github.com/nimasrn/community-gateway/internal/model"
	xhttp "github.com/nimasrn/community-gateway/pkg/http"
	"github.com/stretchr/testify/mock"
	"github.com/valyala/fasthttp"
)

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func asUser(ctx *xhttp.RequestCtx, userID string) *xhttp.RequestCtx {
	ctx.Request.Header.Set(UserIDHeader, userID)
	return ctx
}

func withParam(ctx *xhttp.RequestCtx, name, value string) *xhttp.RequestCtx {
	ctx.SetUserValue(name, value)
	return ctx
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func decodeError(ctx *xhttp.RequestCtx) string {
	var body map[string]string
	_ = json.Unmarshal(ctx.Response.Body(), &body)
	return body["error"]
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) IsEmailExist(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserService) SignUp(ctx context.Context, req model.SignUpRequest) (*model.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) CreatePasswordReset(ctx context.Context, email string) (*model.PasswordReset, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PasswordReset), args.Error(1)
}

func (m *MockUserService) ResetPassword(ctx context.Context, token, password string) error {
	return m.Called(ctx, token, password).Error(0)
}

func (m *MockUserService) GetPersonalProfile(ctx context.Context, id string) (*model.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

type MockGroupService struct {
	mock.Mock
}

func (m *MockGroupService) DiscoverGroups(ctx context.Context, name string) ([]*model.GroupSummary, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.GroupSummary), args.Error(1)
}

func (m *MockGroupService) DiscoverPeople(ctx context.Context, name, excludeUserID string) ([]*model.PublicUser, error) {
	args := m.Called(ctx, name, excludeUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PublicUser), args.Error(1)
}

func (m *MockGroupService) UpsertFreeGroup(ctx context.Context, req model.GroupFreeRequest, userID, photo, groupID string) (*model.Group, error) {
	args := m.Called(ctx, req, userID, photo, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Group), args.Error(1)
}

func (m *MockGroupService) UpsertPaidGroup(ctx context.Context, req model.GroupPaidRequest, userID, photo string, assets []string, groupID string) (*model.Group, error) {
	args := m.Called(ctx, req, userID, photo, assets, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Group), args.Error(1)
}

func (m *MockGroupService) GetGroupDetail(ctx context.Context, id string) (*model.GroupDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GroupDetail), args.Error(1)
}

func (m *MockGroupService) GetMyGroupDetail(ctx context.Context, id, userID string) (*model.GroupDetail, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GroupDetail), args.Error(1)
}

func (m *MockGroupService) GetMyOwnGroups(ctx context.Context, userID string) (*model.OwnGroupsDashboard, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OwnGroupsDashboard), args.Error(1)
}

func (m *MockGroupService) JoinFreeGroup(ctx context.Context, groupID, userID string) error {
	return m.Called(ctx, groupID, userID).Error(0)
}

func (m *MockGroupService) DeleteGroupAsset(ctx context.Context, assetID, userID string) error {
	return m.Called(ctx, assetID, userID).Error(0)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) CreatePersonalRoom(ctx context.Context, senderID, receiverID string) (*model.Room, error) {
	args := m.Called(ctx, senderID, receiverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *MockChatService) SendMessage(ctx context.Context, req model.CreateMessageRequest, userID, attachment string) (*model.Message, error) {
	args := m.Called(ctx, req, userID, attachment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockChatService) GetRecentRooms(ctx context.Context, userID string) ([]*model.RoomSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RoomSummary), args.Error(1)
}

func (m *MockChatService) GetRoomMessages(ctx context.Context, roomID string) ([]*model.Message, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) CreateTransaction(ctx context.Context, groupID, userID string) (json.RawMessage, error) {
	args := m.Called(ctx, groupID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockTransactionService) FindTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionService) UpdateTransaction(ctx context.Context, orderID, status string) (*model.ReconcileResult, error) {
	args := m.Called(ctx, orderID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReconcileResult), args.Error(1)
}

func (m *MockTransactionService) GetBalance(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionService) GetRevenueStat(ctx context.Context, userID string) (*model.RevenueStat, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RevenueStat), args.Error(1)
}

func (m *MockTransactionService) CreateWithdraw(ctx context.Context, req model.WithdrawRequest, userID string) (*model.Payout, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payout), args.Error(1)
}

func (m *MockTransactionService) UpdateWithdraw(ctx context.Context, id, proof string) (*model.Payout, error) {
	args := m.Called(ctx, id, proof)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payout), args.Error(1)
}

func (m *MockTransactionService) GetHistoryPayouts(ctx context.Context, userID string) ([]*model.Payout, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payout), args.Error(1)
}

func (m *MockTransactionService) GetAllHistoryPayouts(ctx context.Context) ([]*model.Payout, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payout), args.Error(1)
}

type MockCallbackPublisher struct {
	mock.Mock
}

func (m *MockCallbackPublisher) PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error) {
	args := m.Called(ctx, data, metadata)
	return args.String(0), args.Error(1)
}
