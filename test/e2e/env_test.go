package e2e

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	gateway "github.com/nimasrn/community-gateway/internal/gateways"
	"github.com/nimasrn/community-gateway/internal/handlers"
	"github.com/nimasrn/community-gateway/internal/processor"
	"github.com/nimasrn/community-gateway/internal/queue"
	"github.com/nimasrn/community-gateway/internal/realtime"
	"github.com/nimasrn/community-gateway/internal/repository"
	"github.com/nimasrn/community-gateway/internal/services"
	"github.com/nimasrn/community-gateway/internal/storage"
	xhttp "github.com/nimasrn/community-gateway/pkg/http"
	"github.com/nimasrn/community-gateway/pkg/pg"
	"github.com/nimasrn/community-gateway/pkg/redis"
	"github.com/nimasrn/community-gateway/test/helpers"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

// fakeGateway answers checkout requests the way the hosted gateway does.
type fakeGateway struct {
	mu     sync.Mutex
	orders []string
	server *fasthttp.Server
	addr   string
}

func startFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	g := &fakeGateway{addr: ln.Addr().String()}
	g.server = &fasthttp.Server{Handler: g.handle}
	go func() { _ = g.server.Serve(ln) }()
	t.Cleanup(func() { _ = g.server.Shutdown() })
	return g
}

func (g *fakeGateway) handle(ctx *fasthttp.RequestCtx) {
	var body struct {
		TransactionDetails struct {
			OrderID string `json:"order_id"`
		} `json:"transaction_details"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &body); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		return
	}
	g.mu.Lock()
	g.orders = append(g.orders, body.TransactionDetails.OrderID)
	g.mu.Unlock()

	ctx.SetStatusCode(fasthttp.StatusCreated)
	ctx.SetContentType("application/json")
	ctx.SetBodyString(`{"token":"tok-` + body.TransactionDetails.OrderID + `","redirect_url":"http://pay.test/` + body.TransactionDetails.OrderID + `"}`)
}

func (g *fakeGateway) lastOrder(t *testing.T) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.orders, "gateway received no checkout")
	return g.orders[len(g.orders)-1]
}

type TestEnvironment struct {
	DB           *pg.DB
	Redis        *miniredis.Miniredis
	RedisAdapter redis.RedisAdapter
	Gateway      *fakeGateway
	Files        *storage.Local

	UserRepo  *repository.UserRepository
	GroupRepo *repository.GroupRepository
	ChatRepo  *repository.ChatRepository

	Users        *services.UserService
	Groups       *services.GroupService
	Chat         *services.ChatService
	Transactions *services.TransactionService

	TransactionHandler *handlers.TransactionHandler
	GroupHandler       *handlers.GroupHandler
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	db := helpers.SetupTestDB(t)
	mr, adapter := helpers.SetupTestRedis(t)
	gw := startFakeGateway(t)

	payments, err := gateway.NewClient(&gateway.Config{
		TransactionURL: "http://" + gw.addr + "/snap/v1/transactions",
		AuthString:     "c2VydmVyOg==",
		FinishURL:      "http://app.test/finish",
		Timeout:        2 * time.Second,
	})
	require.NoError(t, err)

	files := storage.NewLocal(t.TempDir(), map[storage.Kind]string{
		storage.UserPhoto:  "http://cdn.test/users",
		storage.GroupPhoto: "http://cdn.test/groups",
	})

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	chatRepo := repository.NewChatRepository(db)

	env := &TestEnvironment{
		DB:           db,
		Redis:        mr,
		RedisAdapter: adapter,
		Gateway:      gw,
		Files:        files,
		UserRepo:     userRepo,
		GroupRepo:    groupRepo,
		ChatRepo:     chatRepo,
	}
	env.Users = services.NewUserService(userRepo, files)
	env.Groups = services.NewGroupService(groupRepo, chatRepo, userRepo, files)
	env.Chat = services.NewChatService(chatRepo, userRepo, files, realtime.NewRedisRelay(adapter))
	env.Transactions = services.NewTransactionService(
		repository.NewTransactionRepository(db),
		repository.NewPayoutRepository(db),
		groupRepo, chatRepo, userRepo, payments, files,
	)
	env.TransactionHandler = handlers.NewTransactionHandler(env.Transactions)
	env.GroupHandler = handlers.NewGroupHandler(env.Groups)
	return env
}

func callbackQueueConfig(name string) queue.QueueConfig {
	return queue.QueueConfig{
		Name:              name,
		ConsumerGroup:     "processors",
		ConsumerName:      "e2e",
		MaxRetries:        3,
		VisibilityTimeout: time.Second,
		PollInterval:      20 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}
}

// startCallbackPipeline routes the webhook through the Redis stream and starts
// the processor draining it.
func (env *TestEnvironment) startCallbackPipeline(t *testing.T) *processor.ProcessorService {
	t.Helper()
	qc := callbackQueueConfig("callbacks")

	publisher, err := queue.NewQueue(context.Background(), env.RedisAdapter, qc)
	require.NoError(t, err)
	env.TransactionHandler.WithCallbackQueue(publisher)

	idem := processor.NewIdempotencyService(env.RedisAdapter, processor.DefaultIdempotencyConfig())
	svc := processor.NewProcessorService(env.RedisAdapter, processor.Options{Queue: qc, Consumers: 1, Workers: 2, Buffer: 8})
	svc.RegisterProcessor(processor.NewPaymentCallbackProcessor(env.Transactions, idem))
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)
	return svc
}

func request(method, path, userID string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if userID != "" {
		ctx.Request.Header.Set(handlers.UserIDHeader, userID)
	}
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func notification(orderID, status string) []byte {
	b, _ := json.Marshal(map[string]string{"order_id": orderID, "transaction_status": status})
	return b
}
