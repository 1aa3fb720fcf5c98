// Package inmemory implements the storage contract in process memory.
// A single mutex makes every conditional write atomic, which mirrors what a
// "WHERE status = 'Pending'" update gives in PostgreSQL.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/v1/errors"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/modelstorage"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type Storage struct {
	mu        sync.RWMutex
	log       *zerolog.Logger
	now       func() time.Time
	lastID    uint
	users     map[string]modelstorage.UserStorageEntry
	emails    map[string]string
	donations map[string]*modelstorage.DonationStorageEntry
}

func InitStorage(log *zerolog.Logger) *Storage {
	log.Info().Msg("in-memory storage initialized")
	return &Storage{
		log:       log,
		now:       time.Now,
		users:     make(map[string]modelstorage.UserStorageEntry),
		emails:    make(map[string]string),
		donations: make(map[string]*modelstorage.DonationStorageEntry),
	}
}

// SetClock replaces the time source used for record timestamps.
func (s *Storage) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	return nil
}

func (s *Storage) AddNewUser(ctx context.Context, user modelstorage.UserStorageEntry) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[user.Email]; ok {
		return &storageErrors.AlreadyExistsError{Err: errors.New("duplicate email"), ID: user.Email}
	}
	if _, ok := s.users[user.UserID]; ok {
		return &storageErrors.AlreadyExistsError{Err: errors.New("duplicate user id"), ID: user.UserID}
	}
	s.lastID++
	user.ID = s.lastID
	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = s.now()
	}
	s.users[user.UserID] = user
	s.emails[user.Email] = user.UserID
	s.log.Debug().Str("user", user.UserID).Msg("adding new user done")
	return nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*modelstorage.UserStorageEntry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.emails[email]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: email}
	}
	user := s.users[userID]
	return &user, nil
}

func (s *Storage) GetUserByID(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: userID}
	}
	return &user, nil
}

func (s *Storage) AddNewDonation(ctx context.Context, donation modelstorage.DonationStorageEntry) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donations[donation.OrderID]; ok {
		return &storageErrors.AlreadyExistsError{Err: errors.New("duplicate order id"), ID: donation.OrderID}
	}
	s.lastID++
	donation.ID = s.lastID
	donation.CreatedAt = s.now()
	donation.UpdatedAt = donation.CreatedAt
	s.donations[donation.OrderID] = &donation
	s.log.Debug().Str("order", donation.OrderID).Msg("adding new donation done")
	return nil
}

func (s *Storage) GetDonation(ctx context.Context, orderID string) (*modelstorage.DonationStorageEntry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	donation, ok := s.donations[orderID]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: orderID}
	}
	result := *donation
	return &result, nil
}

func (s *Storage) MarkSuccess(ctx context.Context, orderID, paymentID string) (*modelstorage.DonationStorageEntry, bool, error) {
	return s.resolve(ctx, orderID, modelstorage.StatusSuccess, paymentID)
}

func (s *Storage) MarkFailed(ctx context.Context, orderID string) (*modelstorage.DonationStorageEntry, bool, error) {
	return s.resolve(ctx, orderID, modelstorage.StatusFailed, "")
}

func (s *Storage) resolve(ctx context.Context, orderID, status, paymentID string) (*modelstorage.DonationStorageEntry, bool, error) {
	if err := checkContext(ctx); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	donation, ok := s.donations[orderID]
	if !ok {
		return nil, false, &storageErrors.NotFoundError{ID: orderID}
	}
	applied := false
	if donation.Status == modelstorage.StatusPending {
		donation.Status = status
		donation.PaymentID = paymentID
		donation.UpdatedAt = s.now()
		applied = true
	}
	result := *donation
	return &result, applied, nil
}

func (s *Storage) FailStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var affected int64
	now := s.now()
	createdBefore := now.Add(-olderThan)
	for _, donation := range s.donations {
		if donation.Status == modelstorage.StatusPending && donation.CreatedAt.Before(createdBefore) {
			donation.Status = modelstorage.StatusFailed
			donation.UpdatedAt = now
			affected++
		}
	}
	return affected, nil
}

// newestFirst orders donations by creation time, later insertions first on ties.
func newestFirst(donations []modelstorage.DonationStorageEntry) {
	sort.Slice(donations, func(i, j int) bool {
		if donations[i].CreatedAt.Equal(donations[j].CreatedAt) {
			return donations[i].ID > donations[j].ID
		}
		return donations[i].CreatedAt.After(donations[j].CreatedAt)
	})
}

func (s *Storage) GetUserDonations(ctx context.Context, userID string) ([]modelstorage.DonationStorageEntry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var donations []modelstorage.DonationStorageEntry
	for _, donation := range s.donations {
		if donation.UserID == userID {
			donations = append(donations, *donation)
		}
	}
	newestFirst(donations)
	return donations, nil
}

func (s *Storage) GetSuccessTotal(ctx context.Context) (decimal.Decimal, error) {
	if err := checkContext(ctx); err != nil {
		return decimal.Zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, donation := range s.donations {
		if donation.Status == modelstorage.StatusSuccess {
			total = total.Add(donation.Amount)
		}
	}
	return total, nil
}

func (s *Storage) CountCustomers(ctx context.Context) (int64, error) {
	users, err := s.GetCustomers(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(users)), nil
}

func (s *Storage) GetCustomers(ctx context.Context) ([]modelstorage.UserStorageEntry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var users []modelstorage.UserStorageEntry
	for _, user := range s.users {
		if user.Role != modelstorage.RoleAdmin {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].RegisteredAt.After(users[j].RegisteredAt)
	})
	return users, nil
}

func (s *Storage) GetUserTotals(ctx context.Context) ([]modelstorage.UserTotalStorageEntry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := make(map[string]decimal.Decimal)
	for _, donation := range s.donations {
		if donation.Status == modelstorage.StatusSuccess {
			totals[donation.UserID] = totals[donation.UserID].Add(donation.Amount)
		}
	}
	var result []modelstorage.UserTotalStorageEntry
	for userID, total := range totals {
		result = append(result, modelstorage.UserTotalStorageEntry{UserID: userID, Total: total})
	}
	return result, nil
}

func (s *Storage) GetPayerDonations(ctx context.Context) ([]modelstorage.PayerDonationStorageEntry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	donations := make([]modelstorage.DonationStorageEntry, 0, len(s.donations))
	for _, donation := range s.donations {
		donations = append(donations, *donation)
	}
	newestFirst(donations)
	result := make([]modelstorage.PayerDonationStorageEntry, 0, len(donations))
	for _, donation := range donations {
		result = append(result, modelstorage.PayerDonationStorageEntry{
			DonationStorageEntry: donation,
			PayerName:            s.users[donation.UserID].Name,
		})
	}
	return result, nil
}
