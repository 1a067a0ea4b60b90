package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type webhookRecorder struct {
	mu    sync.Mutex
	calls []Notification
}

func (w *webhookRecorder) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var n Notification
		_ = json.Unmarshal(b, &n)
		w.mu.Lock()
		w.calls = append(w.calls, n)
		w.mu.Unlock()
		rw.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (w *webhookRecorder) received() []Notification {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Notification(nil), w.calls...)
}

func checkoutBody(orderID string, amount int64) []byte {
	var req CheckoutRequest
	req.TransactionDetails.OrderID = orderID
	req.TransactionDetails.GrossAmount = amount
	req.CustomerDetails.Email = "ann@example.com"
	b, _ := json.Marshal(req)
	return b
}

func do(router http.Handler, method, path string, body []byte, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", "Basic "+auth)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSimulator_CheckoutThenSettles(t *testing.T) {
	hook := &webhookRecorder{}
	srv := hook.server(t)
	sim := NewSimulator("c2VydmVyOg==", srv.URL, 1, 10*time.Millisecond)
	router := SetupRouter(sim)

	w := do(router, http.MethodPost, "/snap/v1/transactions", checkoutBody("order-1", 150000), "c2VydmVyOg==")
	require.Equal(t, http.StatusCreated, w.Code)

	var res CheckoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Token)
	assert.Contains(t, res.RedirectURL, res.Token)

	sim.Wait()
	calls := hook.received()
	require.Len(t, calls, 1)
	assert.Equal(t, Notification{OrderID: "order-1", TransactionStatus: "settlement", GrossAmount: 150000}, calls[0])

	w = do(router, http.MethodGet, "/snap/v1/transactions/order-1", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"settlement"`)
}

func TestSimulator_DeniesWhenSettleRateZero(t *testing.T) {
	hook := &webhookRecorder{}
	sim := NewSimulator("", hook.server(t).URL, 0, 0)
	router := SetupRouter(sim)

	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/snap/v1/transactions", checkoutBody("order-2", 1000), "").Code)
	sim.Wait()

	calls := hook.received()
	require.Len(t, calls, 1)
	assert.Equal(t, "deny", calls[0].TransactionStatus)
}

func TestSimulator_RejectsBadAuth(t *testing.T) {
	sim := NewSimulator("secret", "", 1, -1)
	w := do(SetupRouter(sim), http.MethodPost, "/snap/v1/transactions", checkoutBody("order-3", 1000), "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSimulator_RejectsDuplicateOrder(t *testing.T) {
	sim := NewSimulator("", "", 1, -1)
	router := SetupRouter(sim)

	assert.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/snap/v1/transactions", checkoutBody("order-4", 1000), "").Code)
	assert.Equal(t, http.StatusConflict, do(router, http.MethodPost, "/snap/v1/transactions", checkoutBody("order-4", 1000), "").Code)
}

func TestSimulator_RequiresOrderAndAmount(t *testing.T) {
	sim := NewSimulator("", "", 1, -1)
	w := do(SetupRouter(sim), http.MethodPost, "/snap/v1/transactions", checkoutBody("", 0), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSimulator_ManualNotify(t *testing.T) {
	hook := &webhookRecorder{}
	sim := NewSimulator("", hook.server(t).URL, 1, -1)
	router := SetupRouter(sim)

	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/snap/v1/transactions", checkoutBody("order-5", 1000), "").Code)
	assert.Empty(t, hook.received())

	w := do(router, http.MethodPost, "/snap/v1/transactions/order-5/notify", []byte(`{"transaction_status":"expire"}`), "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, hook.received(), 1)
	assert.Equal(t, "expire", hook.received()[0].TransactionStatus)

	w = do(router, http.MethodPost, "/snap/v1/transactions/nope/notify", []byte(`{"transaction_status":"expire"}`), "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSimulator_UpdateConfig(t *testing.T) {
	sim := NewSimulator("", "", 1, -1)
	router := SetupRouter(sim)

	w := do(router, http.MethodPut, "/config", []byte(`{"settle_rate":0.25}`), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.25, sim.settleRate)

	// out of range values are ignored
	do(router, http.MethodPut, "/config", []byte(`{"settle_rate":3}`), "")
	assert.Equal(t, 0.25, sim.settleRate)
}
