// Command gateway mocks the payment processor so the portal can be run end-to-end locally.
package main

import (
	"encoding/json"
	"flag"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/danilovkiri/dk-go-donations/internal/api/rest/middleware"
	"github.com/danilovkiri/dk-go-donations/internal/logger"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelgateway"
	"github.com/danilovkiri/dk-go-donations/internal/signature"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// minAmount is the smallest order the processor accepts, in minor units.
const minAmount = 100

type ServerConfig struct {
	ServerAddress string `env:"RUN_ADDRESS"`
	KeyID         string `env:"GATEWAY_KEY_ID" envDefault:"rzp_test_key"`
	KeySecret     string `env:"GATEWAY_KEY_SECRET" envDefault:"rzp_test_secret"`
	FailureChance int    `env:"GATEWAY_FAILURE_CHANCE" envDefault:"10"`
}

func NewServerConfig() (*ServerConfig, error) {
	cfg := ServerConfig{}
	err := env.Parse(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func (c *ServerConfig) ParseFlags() {
	a := flag.String("a", ":7070", "Server address")
	flag.Parse()
	if isFlagPassed("a") || c.ServerAddress == "" {
		c.ServerAddress = *a
	}
}

type Gateway struct {
	cfg    *ServerConfig
	log    *zerolog.Logger
	mu     sync.Mutex
	orders map[string]modelgateway.Order
}

func NewGateway(cfg *ServerConfig, log *zerolog.Logger) *Gateway {
	return &Gateway{
		cfg:    cfg,
		log:    log,
		orders: make(map[string]modelgateway.Order),
	}
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.New().String(), "-", "")[:14]
}

func (g *Gateway) respondError(w http.ResponseWriter, status int, code, description string) {
	g.log.Info().Int("status", status).Msg(description)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resBody, _ := json.Marshal(modelgateway.ErrorResponse{Error: modelgateway.ErrorDetail{Code: code, Description: description}})
	w.Write(resBody)
}

func (g *Gateway) respond(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	resBody, _ := json.Marshal(v)
	w.Write(resBody)
}

// HandleCreateOrder mocks order creation with basic auth and occasional server errors.
func (g *Gateway) HandleCreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyID, keySecret, ok := r.BasicAuth()
		if !ok || keyID != g.cfg.KeyID || keySecret != g.cfg.KeySecret {
			g.respondError(w, http.StatusUnauthorized, "BAD_REQUEST_ERROR", "Authentication failed")
			return
		}

		// mock http status 500 error
		if g.cfg.FailureChance > rand.Intn(100) {
			g.respondError(w, http.StatusInternalServerError, "SERVER_ERROR", "We are facing some trouble completing your request at the moment")
			return
		}

		var req modelgateway.OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			g.respondError(w, http.StatusBadRequest, "BAD_REQUEST_ERROR", "The request body is not valid JSON")
			return
		}
		if req.Amount < minAmount {
			g.respondError(w, http.StatusBadRequest, "BAD_REQUEST_ERROR", "The amount must be atleast INR 1.00")
			return
		}
		if req.Currency == "" {
			g.respondError(w, http.StatusBadRequest, "BAD_REQUEST_ERROR", "The currency field is required")
			return
		}

		order := modelgateway.Order{
			ID:        newID("order_"),
			Entity:    "order",
			Amount:    req.Amount,
			AmountDue: req.Amount,
			Currency:  req.Currency,
			Receipt:   req.Receipt,
			Status:    "created",
			CreatedAt: time.Now().Unix(),
		}
		g.mu.Lock()
		g.orders[order.ID] = order
		g.mu.Unlock()
		g.log.Info().Str("order", order.ID).Int64("amount", order.Amount).Msg("order created")
		g.respond(w, order)
	}
}

// HandlePay mocks a completed checkout and returns what the checkout widget hands to the portal client.
func (g *Gateway) HandlePay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderID")
		g.mu.Lock()
		order, ok := g.orders[orderID]
		if ok {
			order.Status = "paid"
			order.AmountPaid = order.Amount
			order.AmountDue = 0
			order.Attempts++
			g.orders[orderID] = order
		}
		g.mu.Unlock()
		if !ok {
			g.respondError(w, http.StatusNotFound, "BAD_REQUEST_ERROR", "The id provided does not exist")
			return
		}
		paymentID := newID("pay_")
		g.log.Info().Str("order", orderID).Str("payment", paymentID).Msg("order paid")
		g.respond(w, modelgateway.Payment{
			RazorpayPaymentID: paymentID,
			RazorpayOrderID:   orderID,
			RazorpaySignature: signature.Sign(g.cfg.KeySecret, orderID, paymentID),
		})
	}
}

func InitServer(cfg *ServerConfig, log *zerolog.Logger) (server *http.Server, err error) {
	g := NewGateway(cfg, log)
	r := chi.NewRouter()
	r.Use(middleware.CompressHandle)
	r.Use(middleware.DecompressHandle)
	r.Post("/v1/orders", g.HandleCreateOrder())
	r.Post("/v1/checkout/{orderID}/pay", g.HandlePay())
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		IdleTimeout:  60 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return srv, nil
}

func main() {
	rand.Seed(time.Now().UnixNano())
	log := logger.InitLog()
	cfg, err := NewServerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	cfg.ParseFlags()
	server, err := InitServer(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	log.Info().Msg("mock gateway start attempted")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("")
	}
}
