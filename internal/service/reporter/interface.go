// Package reporter defines the donation reporting contract.
package reporter

import (
	"context"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
)

type Reporter interface {
	GetUserHistory(ctx context.Context, userID string) (*modeldto.History, error)
	GetAdminStats(ctx context.Context) (*modeldto.AdminStats, error)
}
