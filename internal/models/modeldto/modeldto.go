// Package modeldto provides types for API request and response bodies.
package modeldto

import (
	"strconv"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/modelstorage"
	"github.com/shopspring/decimal"
)

func init() {
	// amounts travel as JSON numbers in both directions
	decimal.MarshalJSONWithoutQuotes = true
}

type (
	User struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role,omitempty"`
	}
	Credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	UserInfo struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	Login struct {
		Message string   `json:"message"`
		Token   string   `json:"token"`
		User    UserInfo `json:"user"`
	}
	Message struct {
		Message string `json:"message"`
	}
)

type (
	NewOrder struct {
		Amount decimal.Decimal `json:"amount"`
		UserID string          `json:"userId"`
	}
	PaymentConfirmation struct {
		OrderCreationID   string `json:"orderCreationId"`
		RazorpayPaymentID string `json:"razorpayPaymentId"`
		RazorpaySignature string `json:"razorpaySignature"`
	}
	PaymentFailure struct {
		OrderID string `json:"orderId"`
	}
	HistoryRequest struct {
		UserID string `json:"userId"`
	}
)

// Requester identifies the authenticated caller of an order operation.
type Requester struct {
	UserID string
	Admin  bool
}

// Owns reports whether the caller may act on a donation of ownerID.
func (r Requester) Owns(ownerID string) bool {
	return r.Admin || (r.UserID != "" && r.UserID == ownerID)
}

type (
	Donation struct {
		ID        string          `json:"id"`
		UserID    string          `json:"userId"`
		Amount    decimal.Decimal `json:"amount"`
		Status    string          `json:"status"`
		OrderID   string          `json:"orderId"`
		PaymentID string          `json:"paymentId"`
		CreatedAt time.Time       `json:"createdAt"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}
	ResolvedDonation struct {
		Message  string    `json:"message"`
		Donation *Donation `json:"donation"`
	}
	History struct {
		Donations []Donation `json:"donations"`
	}
)

type (
	Stats struct {
		Users          int64           `json:"users"`
		TotalDonations decimal.Decimal `json:"totalDonations"`
	}
	UserSummary struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		Email        string          `json:"email"`
		CreatedAt    time.Time       `json:"createdAt"`
		TotalDonated decimal.Decimal `json:"totalDonated"`
	}
	PayerDonation struct {
		Donation
		PayerName string `json:"payerName"`
	}
	AdminStats struct {
		Stats     Stats           `json:"stats"`
		Users     []UserSummary   `json:"users"`
		Donations []PayerDonation `json:"donations"`
	}
)

// NewDonation builds the API view of a stored donation.
func NewDonation(entry modelstorage.DonationStorageEntry) Donation {
	return Donation{
		ID:        strconv.FormatUint(uint64(entry.ID), 10),
		UserID:    entry.UserID,
		Amount:    entry.Amount,
		Status:    entry.Status,
		OrderID:   entry.OrderID,
		PaymentID: entry.PaymentID,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}
}
