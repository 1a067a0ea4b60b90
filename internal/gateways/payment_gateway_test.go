package gateway

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// startGateway serves handler over an in-memory listener and points a new
// client at it.
func startGateway(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	c, err := NewClient(&Config{
		TransactionURL: "http://gateway.test/snap/v1/transactions",
		AuthString:     "c2VydmVyLWtleTo=",
		FinishURL:      "http://app.test/success",
		Timeout:        2 * time.Second,
	})
	require.NoError(t, err)
	c.http.Dial = func(addr string) (net.Conn, error) { return ln.Dial() }
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&Config{})
	assert.Error(t, err)

	c, err := NewClient(&Config{TransactionURL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, c.config.Timeout)
}

func TestClient_CreateCheckout(t *testing.T) {
	var got checkoutBody
	var auth string
	c := startGateway(t, func(ctx *fasthttp.RequestCtx) {
		auth = string(ctx.Request.Header.Peek("Authorization"))
		_ = json.Unmarshal(ctx.PostBody(), &got)
		ctx.SetContentType("application/json")
		ctx.SetStatusCode(fasthttp.StatusCreated)
		ctx.SetBodyString(`{"token":"tok-1","redirect_url":"http://pay/tok-1"}`)
	})

	res, err := c.CreateCheckout(context.Background(), CheckoutRequest{OrderID: "order-1", GrossAmount: 100000, Email: "b@example.com"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"token":"tok-1","redirect_url":"http://pay/tok-1"}`, string(res))
	assert.Equal(t, "Basic c2VydmVyLWtleTo=", auth)
	assert.Equal(t, "order-1", got.TransactionDetails.OrderID)
	assert.Equal(t, int64(100000), got.TransactionDetails.GrossAmount)
	assert.True(t, got.CreditCard.Secure)
	assert.Equal(t, "b@example.com", got.CustomerDetails.Email)
	assert.Equal(t, "http://app.test/success", got.Callbacks.Finish)
}

func TestClient_CreateCheckout_Errors(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		c := startGateway(t, func(ctx *fasthttp.RequestCtx) {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			ctx.SetBodyString(`{"error_messages":["unauthorized"]}`)
		})

		_, err := c.CreateCheckout(context.Background(), CheckoutRequest{OrderID: "o"})
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, fasthttp.StatusUnauthorized, statusErr.Code)
		assert.Contains(t, string(statusErr.Body), "unauthorized")
	})

	t.Run("invalid json", func(t *testing.T) {
		c := startGateway(t, func(ctx *fasthttp.RequestCtx) {
			ctx.SetBodyString("<html>")
		})

		_, err := c.CreateCheckout(context.Background(), CheckoutRequest{OrderID: "o"})
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})
}
