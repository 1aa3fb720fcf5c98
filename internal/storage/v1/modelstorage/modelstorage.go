// Package modelstorage provides types for querying relational DB.
package modelstorage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Donation statuses. Pending is the only non-terminal one.
const (
	StatusPending = "Pending"
	StatusSuccess = "Success"
	StatusFailed  = "Failed"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type UserStorageEntry struct {
	ID           uint      `db:"id"`
	UserID       string    `db:"user_id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	RegisteredAt time.Time `db:"registered_at"`
}

type DonationStorageEntry struct {
	ID        uint            `db:"id"`
	UserID    string          `db:"user_id"`
	Amount    decimal.Decimal `db:"amount"`
	Status    string          `db:"status"`
	OrderID   string          `db:"order_id"`
	PaymentID string          `db:"payment_id"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

type PayerDonationStorageEntry struct {
	DonationStorageEntry
	PayerName string `db:"payer_name"`
}

type UserTotalStorageEntry struct {
	UserID string          `db:"user_id"`
	Total  decimal.Decimal `db:"total"`
}
