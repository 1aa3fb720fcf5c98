package initiator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelgateway"
	serviceErrors "github.com/danilovkiri/dk-go-donations/internal/service/errors"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/inmemory"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/modelstorage"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu       sync.Mutex
	err      error
	counter  int
	amounts  []int64
	receipts []string
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*modelgateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.counter++
	g.amounts = append(g.amounts, amount)
	g.receipts = append(g.receipts, receipt)
	return &modelgateway.Order{
		ID:        fmt.Sprintf("order_%d", g.counter),
		Entity:    "order",
		Amount:    amount,
		AmountDue: amount,
		Currency:  currency,
		Receipt:   receipt,
		Status:    "created",
	}, nil
}

type brokenLedger struct {
	*inmemory.Storage
}

func (b brokenLedger) AddNewDonation(context.Context, modelstorage.DonationStorageEntry) error {
	return errors.New("disk full")
}

func setup(t *testing.T) (*Initiator, *inmemory.Storage, *fakeGateway) {
	log := zerolog.Nop()
	st := inmemory.InitStorage(&log)
	require.NoError(t, st.AddNewUser(context.Background(), modelstorage.UserStorageEntry{UserID: "U1", Name: "Alice", Email: "a@example.com", Role: modelstorage.RoleUser}))
	gw := &fakeGateway{}
	ini, err := InitService(st, gw, "INR", &log)
	require.NoError(t, err)
	return ini, st, gw
}

func TestCreateOrder_RecordsPendingDonation(t *testing.T) {
	ini, st, gw := setup(t)
	ctx := context.Background()

	order, err := ini.CreateOrder(ctx, modeldto.NewOrder{Amount: decimal.NewFromInt(500), UserID: "U1"})
	require.NoError(t, err)
	assert.Equal(t, int64(50000), order.Amount)
	assert.Equal(t, "INR", order.Currency)
	require.Len(t, gw.receipts, 1)
	assert.Contains(t, gw.receipts[0], "receipt_")
	assert.LessOrEqual(t, len(gw.receipts[0]), 40)

	donation, err := st.GetDonation(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, modelstorage.StatusPending, donation.Status)
	assert.Equal(t, "", donation.PaymentID)
	assert.Equal(t, "U1", donation.UserID)
	assert.True(t, decimal.NewFromInt(500).Equal(donation.Amount))
}

func TestCreateOrder_MinorUnits(t *testing.T) {
	tests := []struct {
		amount   string
		expected int64
	}{
		{amount: "1", expected: 100},
		{amount: "0.01", expected: 1},
		{amount: "19.99", expected: 1999},
		{amount: "250.5", expected: 25050},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			ini, _, gw := setup(t)
			_, err := ini.CreateOrder(context.Background(), modeldto.NewOrder{Amount: decimal.RequireFromString(tt.amount), UserID: "U1"})
			require.NoError(t, err)
			assert.Equal(t, []int64{tt.expected}, gw.amounts)
		})
	}
}

func TestCreateOrder_RejectsInput(t *testing.T) {
	tests := []struct {
		name   string
		order  modeldto.NewOrder
		target interface{}
	}{
		{name: "zero amount", order: modeldto.NewOrder{Amount: decimal.Zero, UserID: "U1"}, target: new(*serviceErrors.InvalidAmount)},
		{name: "negative amount", order: modeldto.NewOrder{Amount: decimal.NewFromInt(-5), UserID: "U1"}, target: new(*serviceErrors.InvalidAmount)},
		{name: "sub-minor amount", order: modeldto.NewOrder{Amount: decimal.RequireFromString("1.005"), UserID: "U1"}, target: new(*serviceErrors.InvalidAmount)},
		{name: "too large amount", order: modeldto.NewOrder{Amount: decimal.New(1, 11), UserID: "U1"}, target: new(*serviceErrors.InvalidAmount)},
		{name: "missing user", order: modeldto.NewOrder{Amount: decimal.NewFromInt(5)}, target: new(*serviceErrors.UnknownUser)},
		{name: "unknown user", order: modeldto.NewOrder{Amount: decimal.NewFromInt(5), UserID: "ghost"}, target: new(*serviceErrors.UnknownUser)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ini, _, gw := setup(t)
			_, err := ini.CreateOrder(context.Background(), tt.order)
			require.Error(t, err)
			assert.True(t, errors.As(err, tt.target))
			assert.Empty(t, gw.amounts, "gateway must not be called")
		})
	}
}

func TestCreateOrder_GatewayUnavailable(t *testing.T) {
	ini, st, gw := setup(t)
	gw.err = errors.New("connection refused")

	_, err := ini.CreateOrder(context.Background(), modeldto.NewOrder{Amount: decimal.NewFromInt(500), UserID: "U1"})
	var gatewayUnavailable *serviceErrors.GatewayUnavailable
	require.True(t, errors.As(err, &gatewayUnavailable))

	donations, err := st.GetUserDonations(context.Background(), "U1")
	require.NoError(t, err)
	assert.Empty(t, donations)
}

func TestCreateOrder_PersistenceFailure(t *testing.T) {
	log := zerolog.Nop()
	st := inmemory.InitStorage(&log)
	require.NoError(t, st.AddNewUser(context.Background(), modelstorage.UserStorageEntry{UserID: "U1", Name: "Alice", Email: "a@example.com", Role: modelstorage.RoleUser}))
	ini, err := InitService(brokenLedger{st}, &fakeGateway{}, "INR", &log)
	require.NoError(t, err)

	_, err = ini.CreateOrder(context.Background(), modeldto.NewOrder{Amount: decimal.NewFromInt(500), UserID: "U1"})
	var persistenceFailure *serviceErrors.PersistenceFailure
	require.True(t, errors.As(err, &persistenceFailure))
	assert.Equal(t, "order_1", persistenceFailure.OrderID)
}
