package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/community-gateway/pkg/logger"
	"github.com/nimasrn/community-gateway/pkg/prom"
	"github.com/valyala/fasthttp"
)

var ErrInvalidResponse = errors.New("payment gateway returned invalid json")

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("payment gateway responded %d: %s", e.Code, e.Body)
}

type Config struct {
	TransactionURL string
	// AuthString is the pre-encoded value sent as "Authorization: Basic <AuthString>".
	AuthString string
	FinishURL  string
	Timeout    time.Duration
	MaxConns   int
}

type CheckoutRequest struct {
	OrderID     string
	GrossAmount int64
	Email       string
}

type checkoutBody struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	CreditCard struct {
		Secure bool `json:"secure"`
	} `json:"credit_card"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Callbacks struct {
		Finish string `json:"finish"`
	} `json:"callbacks"`
}

// Client opens checkout sessions at the payment gateway. Calls are never
// retried; a failed checkout is reported to the buyer as is.
type Client struct {
	config *Config
	http   *fasthttp.Client
}

func NewClient(config *Config) (*Client, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.TransactionURL == "" {
		return nil, errors.New("transaction url is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.MaxConns <= 0 {
		config.MaxConns = 512
	}

	logger.Info("Payment gateway client initialized", "url", config.TransactionURL, "timeout", config.Timeout)
	return &Client{
		config: config,
		http: &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}, nil
}

// CreateCheckout registers the order at the gateway and returns the response
// body untouched.
func (c *Client) CreateCheckout(ctx context.Context, r CheckoutRequest) (json.RawMessage, error) {
	var body checkoutBody
	body.TransactionDetails.OrderID = r.OrderID
	body.TransactionDetails.GrossAmount = r.GrossAmount
	body.CreditCard.Secure = true
	body.CustomerDetails.Email = r.Email
	body.Callbacks.Finish = c.config.FinishURL

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	res, err := c.doRequest(ctx, payload)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	prom.AddGatewayRequestDuration(time.Since(start).Seconds(), outcome)
	if err != nil {
		logger.Warn("Checkout request failed", "order_id", r.OrderID, "error", err)
		return nil, err
	}

	logger.Info("Checkout created", "order_id", r.OrderID, "amount", r.GrossAmount, "latency_ms", time.Since(start).Milliseconds())
	return res, nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) (json.RawMessage, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.TransactionURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+c.config.AuthString)
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return nil, &StatusError{Code: code, Body: result}
	}
	if !json.Valid(result) {
		return nil, ErrInvalidResponse
	}
	return result, nil
}
