package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	gateway "github.com/nimasrn/community-gateway/internal/gateways"
	"github.com/nimasrn/community-gateway/internal/model"
	"github.com/nimasrn/community-gateway/internal/storage"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// inTx runs fn directly; the mocks hold no real transaction.
func inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) CountByEmail(ctx context.Context, email string) (int64, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, u *model.User, role model.RoleType) (*model.User, error) {
	args := m.Called(ctx, u, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePasswordByEmail(ctx context.Context, email, hash string) error {
	return m.Called(ctx, email, hash).Error(0)
}

func (m *MockUserRepository) LockByID(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) SearchByName(ctx context.Context, name, excludeID string) ([]*model.PublicUser, error) {
	args := m.Called(ctx, name, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PublicUser), args.Error(1)
}

func (m *MockUserRepository) CreatePasswordReset(ctx context.Context, userID, token string) (*model.PasswordReset, error) {
	args := m.Called(ctx, userID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PasswordReset), args.Error(1)
}

func (m *MockUserRepository) FindPasswordReset(ctx context.Context, token string) (*model.PasswordReset, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PasswordReset), args.Error(1)
}

func (m *MockUserRepository) DeletePasswordReset(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) FindJoinedGroups(ctx context.Context, userID string) ([]model.ProfileGroup, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProfileGroup), args.Error(1)
}

func (m *MockUserRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return inTx(ctx, fn)
}

type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Search(ctx context.Context, name string) ([]*model.GroupSummary, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.GroupSummary), args.Error(1)
}

func (m *MockGroupRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.OwnGroup, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OwnGroup), args.Error(1)
}

func (m *MockGroupRepository) FindByID(ctx context.Context, id string) (*model.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Group), args.Error(1)
}

func (m *MockGroupRepository) Create(ctx context.Context, g *model.Group) (*model.Group, error) {
	args := m.Called(ctx, g)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Group), args.Error(1)
}

func (m *MockGroupRepository) Update(ctx context.Context, g *model.Group) error {
	return m.Called(ctx, g).Error(0)
}

func (m *MockGroupRepository) AddAssets(ctx context.Context, groupID string, filenames []string) ([]model.GroupAsset, error) {
	args := m.Called(ctx, groupID, filenames)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.GroupAsset), args.Error(1)
}

func (m *MockGroupRepository) FindAsset(ctx context.Context, id string) (*model.GroupAsset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GroupAsset), args.Error(1)
}

func (m *MockGroupRepository) DeleteAsset(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockRoomRepository serves both the group membership and chat sides.
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) CreateRoom(ctx context.Context, room *model.Room) (*model.Room, error) {
	args := m.Called(ctx, room)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *MockRoomRepository) FindRoomByID(ctx context.Context, id string) (*model.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *MockRoomRepository) AddMember(ctx context.Context, roomID, userID string, role model.RoleType) (*model.RoomMember, error) {
	args := m.Called(ctx, roomID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RoomMember), args.Error(1)
}

func (m *MockRoomRepository) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoomRepository) ListMembers(ctx context.Context, roomID string, roles ...model.RoleType) ([]*model.DetailMember, error) {
	args := m.Called(ctx, roomID, roles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.DetailMember), args.Error(1)
}

func (m *MockRoomRepository) CountMembers(ctx context.Context, roomIDs ...string) (int64, error) {
	args := m.Called(ctx, roomIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRoomRepository) CreateMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockRoomRepository) ListMessages(ctx context.Context, roomID string) ([]*model.Message, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

func (m *MockRoomRepository) ListRoomsByUser(ctx context.Context, userID string) ([]*model.RoomSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.RoomSummary), args.Error(1)
}

func (m *MockRoomRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return inTx(ctx, fn)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CompletePending(ctx context.Context, id string, status model.TransactionType) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) SumSuccessByOwner(ctx context.Context, ownerID string) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) ListSuccessByOwner(ctx context.Context, ownerID string) ([]*model.Transaction, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return inTx(ctx, fn)
}

type MockPayoutRepository struct {
	mock.Mock
}

func (m *MockPayoutRepository) Create(ctx context.Context, p *model.Payout) (*model.Payout, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payout), args.Error(1)
}

func (m *MockPayoutRepository) MarkPaid(ctx context.Context, id, proof string) (*model.Payout, error) {
	args := m.Called(ctx, id, proof)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payout), args.Error(1)
}

func (m *MockPayoutRepository) SumSuccessByUser(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPayoutRepository) List(ctx context.Context, userID string) ([]*model.Payout, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payout), args.Error(1)
}

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateCheckout(ctx context.Context, r gateway.CheckoutRequest) (json.RawMessage, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// recordingRelay keeps every published event in memory.
type recordingRelay struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

type publishedEvent struct {
	Channel string
	Event   string
	Data    any
}

func (r *recordingRelay) Publish(_ context.Context, channel, event string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{channel, event, data})
	return r.err
}

func newTestFiles(t *testing.T) (*storage.Local, string) {
	t.Helper()
	root := t.TempDir()
	return storage.NewLocal(root, map[storage.Kind]string{
		storage.UserPhoto:   "http://cdn.test/users",
		storage.GroupPhoto:  "http://cdn.test/groups",
		storage.GroupAsset:  "http://cdn.test/assets",
		storage.Attachment:  "http://cdn.test/attachments",
		storage.PayoutProof: "http://cdn.test/payouts",
	}), root
}

// touch creates an uploaded file of kind under root.
func touch(t *testing.T, root string, kind storage.Kind, name string) string {
	t.Helper()
	dir := filepath.Join(root, string(kind))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	return p
}
