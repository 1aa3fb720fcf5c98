package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelgateway"
	"github.com/danilovkiri/dk-go-donations/internal/signature"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) http.Handler {
	log := zerolog.Nop()
	srv, err := InitServer(&ServerConfig{KeyID: "key", KeySecret: "secret", FailureChance: 0}, &log)
	require.NoError(t, err)
	return srv.Handler
}

func createOrder(t *testing.T, h http.Handler, user, pass string, amount int64) *httptest.ResponseRecorder {
	body, err := json.Marshal(modelgateway.OrderRequest{Amount: amount, Currency: "INR", Receipt: "receipt_1"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(user, pass)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCreateOrderAndPay(t *testing.T) {
	h := newTestServer(t)

	w := createOrder(t, h, "key", "secret", 50000)
	require.Equal(t, http.StatusOK, w.Code)
	var order modelgateway.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Contains(t, order.ID, "order_")
	assert.Equal(t, int64(50000), order.Amount)

	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/"+order.ID+"/pay", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var payment modelgateway.Payment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payment))
	assert.Equal(t, order.ID, payment.RazorpayOrderID)
	assert.True(t, signature.Verify("secret", order.ID, payment.RazorpayPaymentID, payment.RazorpaySignature))
}

func TestCreateOrder_Rejections(t *testing.T) {
	h := newTestServer(t)
	tests := []struct {
		name     string
		user     string
		pass     string
		amount   int64
		expected int
	}{
		{name: "wrong credentials", user: "key", pass: "nope", amount: 50000, expected: http.StatusUnauthorized},
		{name: "below minimum", user: "key", pass: "secret", amount: 99, expected: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := createOrder(t, h, tt.user, tt.pass, tt.amount)
			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestPay_UnknownOrder(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/checkout/order_missing/pay", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
