package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type CheckoutRequest struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id" binding:"required"`
		GrossAmount int64  `json:"gross_amount" binding:"required"`
	} `json:"transaction_details"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Callbacks struct {
		Finish string `json:"finish"`
	} `json:"callbacks"`
}

type CheckoutResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	GrossAmount       int64  `json:"gross_amount"`
}

type session struct {
	OrderID     string    `json:"order_id"`
	Token       string    `json:"token"`
	GrossAmount int64     `json:"gross_amount"`
	Email       string    `json:"email"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Simulator stands in for the hosted payment gateway: it opens checkout
// sessions and later posts a notification for each to the webhook.
type Simulator struct {
	mu          sync.Mutex
	sessions    map[string]*session
	authString  string
	callbackURL string
	settleRate  float64
	delay       time.Duration
	rng         *rand.Rand
	client      *http.Client
	wg          sync.WaitGroup
}

func NewSimulator(authString, callbackURL string, settleRate float64, delay time.Duration) *Simulator {
	return &Simulator{
		sessions:    make(map[string]*session),
		authString:  authString,
		callbackURL: callbackURL,
		settleRate:  settleRate,
		delay:       delay,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		client:      &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *Simulator) authorized(c *gin.Context) bool {
	if s.authString == "" {
		return true
	}
	return c.GetHeader("Authorization") == "Basic "+s.authString
}

func (s *Simulator) nextStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Float64() < s.settleRate {
		return "settlement"
	}
	return "deny"
}

func (s *Simulator) CreateCheckout(c *gin.Context) {
	if !s.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid server key"})
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	orderID := req.TransactionDetails.OrderID

	s.mu.Lock()
	if _, ok := s.sessions[orderID]; ok {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "order_id has already been taken"})
		return
	}
	sess := &session{
		OrderID:     orderID,
		Token:       uuid.NewString(),
		GrossAmount: req.TransactionDetails.GrossAmount,
		Email:       req.CustomerDetails.Email,
		Status:      "pending",
		CreatedAt:   time.Now(),
	}
	s.sessions[orderID] = sess
	s.mu.Unlock()

	log.Info().
		Str("order_id", orderID).
		Int64("gross_amount", sess.GrossAmount).
		Str("email", sess.Email).
		Msg("Checkout opened")

	// a negative delay leaves notifying to the /notify endpoint
	if s.callbackURL != "" && s.delay >= 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			time.Sleep(s.delay)
			if err := s.notify(context.Background(), orderID, s.nextStatus()); err != nil {
				log.Warn().Err(err).Str("order_id", orderID).Msg("Notification failed")
			}
		}()
	}

	c.JSON(http.StatusCreated, CheckoutResponse{
		Token:       sess.Token,
		RedirectURL: fmt.Sprintf("%s/snap/v2/vtweb/%s", scheme(c)+"://"+c.Request.Host, sess.Token),
	})
}

// Notify forces a status for an order and posts it to the webhook.
func (s *Simulator) Notify(c *gin.Context) {
	var body struct {
		Status string `json:"transaction_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	if err := s.notify(c.Request.Context(), c.Param("order_id"), body.Status); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": c.Param("order_id"), "transaction_status": body.Status})
}

func (s *Simulator) notify(ctx context.Context, orderID, status string) error {
	s.mu.Lock()
	sess, ok := s.sessions[orderID]
	if ok {
		sess.Status = status
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown order %s", orderID)
	}
	if s.callbackURL == "" {
		return nil
	}

	payload, _ := json.Marshal(Notification{OrderID: orderID, TransactionStatus: status, GrossAmount: sess.GrossAmount})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.callbackURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("webhook answered %d", res.StatusCode)
	}

	log.Info().
		Str("order_id", orderID).
		Str("status", status).
		Int("webhook_status", res.StatusCode).
		Msg("Notification delivered")
	return nil
}

func (s *Simulator) GetStatus(c *gin.Context) {
	s.mu.Lock()
	sess, ok := s.sessions[c.Param("order_id")]
	var snapshot session
	if ok {
		snapshot = *sess
	}
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Simulator) HealthCheck(c *gin.Context) {
	s.mu.Lock()
	open := len(s.sessions)
	rate := s.settleRate
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"sessions":    open,
		"settle_rate": rate,
		"timestamp":   time.Now(),
	})
}

// UpdateConfig changes the share of checkouts that settle.
func (s *Simulator) UpdateConfig(c *gin.Context) {
	var config struct {
		SettleRate *float64 `json:"settle_rate"`
	}
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	s.mu.Lock()
	if config.SettleRate != nil && *config.SettleRate >= 0 && *config.SettleRate <= 1 {
		s.settleRate = *config.SettleRate
		log.Info().Float64("rate", s.settleRate).Msg("Updated settle rate")
	}
	rate := s.settleRate
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "Configuration updated", "settle_rate": rate})
}

// Wait blocks until scheduled notifications have been sent.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

func scheme(c *gin.Context) string {
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		return "https"
	}
	return "http"
}

func SetupRouter(sim *Simulator) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})

	snap := router.Group("/snap/v1")
	{
		snap.POST("/transactions", sim.CreateCheckout)
		snap.GET("/transactions/:order_id", sim.GetStatus)
		snap.POST("/transactions/:order_id/notify", sim.Notify)
	}
	router.PUT("/config", sim.UpdateConfig)
	router.GET("/health", sim.HealthCheck)

	return router
}
