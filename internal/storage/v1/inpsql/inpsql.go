// Package inpsql implements the storage contract on top of PostgreSQL.
package inpsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/config"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/v1/errors"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/modelstorage"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	userColumns     = `id, user_id, name, email, password_hash, role, registered_at`
	donationColumns = `id, user_id, amount, status, order_id, payment_id, created_at, updated_at`

	queryInsertUser       = `INSERT INTO users (user_id, name, email, password_hash, role, registered_at) VALUES ($1, $2, $3, $4, $5, $6)`
	querySelectUserByMail = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	querySelectUserByID   = `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	queryInsertDonation = `INSERT INTO donations (user_id, amount, status, order_id, payment_id) VALUES ($1, $2, $3, $4, $5)`
	querySelectDonation = `SELECT ` + donationColumns + ` FROM donations WHERE order_id = $1`
	// every status change is conditioned on the record still being pending
	queryMarkSuccess = `UPDATE donations SET status = 'Success', payment_id = $2, updated_at = now() WHERE order_id = $1 AND status = 'Pending' RETURNING ` + donationColumns
	queryMarkFailed  = `UPDATE donations SET status = 'Failed', updated_at = now() WHERE order_id = $1 AND status = 'Pending' RETURNING ` + donationColumns
	queryFailStale   = `UPDATE donations SET status = 'Failed', updated_at = now() WHERE status = 'Pending' AND created_at < now() - make_interval(secs => $1)`

	querySelectUserDonations = `SELECT ` + donationColumns + ` FROM donations WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	querySuccessTotal    = `SELECT COALESCE(SUM(amount), 0) FROM donations WHERE status = 'Success'`
	queryCountCustomers  = `SELECT COUNT(*) FROM users WHERE role <> 'admin'`
	querySelectCustomers = `SELECT ` + userColumns + ` FROM users WHERE role <> 'admin' ORDER BY registered_at DESC`
	queryUserTotals      = `SELECT user_id, SUM(amount) AS total FROM donations WHERE status = 'Success' GROUP BY user_id`
	queryPayerDonations  = `SELECT d.id, d.user_id, d.amount, d.status, d.order_id, d.payment_id, d.created_at, d.updated_at, COALESCE(u.name, '') AS payer_name
		FROM donations d LEFT JOIN users u ON u.user_id = d.user_id ORDER BY d.created_at DESC, d.id DESC`
)

type Storage struct {
	Cfg *config.StorageConfig
	DB  *sqlx.DB
	log *zerolog.Logger
}

func InitStorage(ctx context.Context, cfg *config.StorageConfig, log *zerolog.Logger) (*Storage, error) {
	db, err := sqlx.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	err = db.PingContext(ctx)
	if err != nil {
		return nil, err
	}
	// initialize a Storage
	st := Storage{
		Cfg: cfg,
		DB:  db,
		log: log,
	}
	err = st.createTables(ctx)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("PSQL DB connection was established")
	return &st, nil
}

// Close releases the DB connection pool.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// run executes fn and reports its outcome, giving up as soon as ctx is done.
func (s *Storage) run(ctx context.Context, op string, fn func() error) error {
	chanEr := make(chan error, 1)
	go func() {
		chanEr <- fn()
	}()
	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("%s failed", op))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		if methodErr != nil {
			s.log.Error().Err(methodErr).Msg(fmt.Sprintf("%s failed", op))
			return methodErr
		}
		s.log.Debug().Msg(fmt.Sprintf("%s done", op))
		return nil
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (s *Storage) AddNewUser(ctx context.Context, user modelstorage.UserStorageEntry) error {
	return s.run(ctx, fmt.Sprintf("adding new user %s", user.UserID), func() error {
		_, err := s.DB.ExecContext(ctx, queryInsertUser, user.UserID, user.Name, user.Email, user.PasswordHash, user.Role, user.RegisteredAt)
		if err != nil {
			if isUniqueViolation(err) {
				return &storageErrors.AlreadyExistsError{Err: err, ID: user.Email}
			}
			return &storageErrors.ExecutionPSQLError{Err: err}
		}
		return nil
	})
}

func (s *Storage) getUser(ctx context.Context, op, query, key string) (*modelstorage.UserStorageEntry, error) {
	var user modelstorage.UserStorageEntry
	err := s.run(ctx, op, func() error {
		err := s.DB.GetContext(ctx, &user, query, key)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return &storageErrors.NotFoundError{Err: err, ID: key}
		case err != nil:
			return &storageErrors.ExecutionPSQLError{Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*modelstorage.UserStorageEntry, error) {
	return s.getUser(ctx, "user lookup by email", querySelectUserByMail, email)
}

func (s *Storage) GetUserByID(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error) {
	return s.getUser(ctx, fmt.Sprintf("user lookup for %s", userID), querySelectUserByID, userID)
}

func (s *Storage) AddNewDonation(ctx context.Context, donation modelstorage.DonationStorageEntry) error {
	return s.run(ctx, fmt.Sprintf("adding new donation for order %s", donation.OrderID), func() error {
		_, err := s.DB.ExecContext(ctx, queryInsertDonation, donation.UserID, donation.Amount, donation.Status, donation.OrderID, donation.PaymentID)
		if err != nil {
			if isUniqueViolation(err) {
				return &storageErrors.AlreadyExistsError{Err: err, ID: donation.OrderID}
			}
			return &storageErrors.ExecutionPSQLError{Err: err}
		}
		return nil
	})
}

func (s *Storage) GetDonation(ctx context.Context, orderID string) (*modelstorage.DonationStorageEntry, error) {
	var donation modelstorage.DonationStorageEntry
	err := s.run(ctx, fmt.Sprintf("donation lookup for order %s", orderID), func() error {
		err := s.DB.GetContext(ctx, &donation, querySelectDonation, orderID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return &storageErrors.NotFoundError{Err: err, ID: orderID}
		case err != nil:
			return &storageErrors.ExecutionPSQLError{Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

func (s *Storage) MarkSuccess(ctx context.Context, orderID, paymentID string) (*modelstorage.DonationStorageEntry, bool, error) {
	return s.resolve(ctx, "marking donation succeeded", queryMarkSuccess, orderID, paymentID)
}

func (s *Storage) MarkFailed(ctx context.Context, orderID string) (*modelstorage.DonationStorageEntry, bool, error) {
	return s.resolve(ctx, "marking donation failed", queryMarkFailed, orderID)
}

// resolve applies a conditional status update. When no pending record matched, the record is
// read back as is so the caller can tell an unknown order from an already resolved one.
func (s *Storage) resolve(ctx context.Context, op, query, orderID string, args ...interface{}) (*modelstorage.DonationStorageEntry, bool, error) {
	var donation modelstorage.DonationStorageEntry
	applied := true
	err := s.run(ctx, fmt.Sprintf("%s for order %s", op, orderID), func() error {
		err := s.DB.GetContext(ctx, &donation, query, append([]interface{}{orderID}, args...)...)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return &storageErrors.ExecutionPSQLError{Err: err}
		}
		applied = false
		err = s.DB.GetContext(ctx, &donation, querySelectDonation, orderID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return &storageErrors.NotFoundError{Err: err, ID: orderID}
		case err != nil:
			return &storageErrors.ExecutionPSQLError{Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &donation, applied, nil
}

func (s *Storage) FailStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	var affected int64
	err := s.run(ctx, "failing stale donations", func() error {
		res, err := s.DB.ExecContext(ctx, queryFailStale, olderThan.Seconds())
		if err != nil {
			return &storageErrors.ExecutionPSQLError{Err: err}
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return &storageErrors.ExecutionPSQLError{Err: err}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (s *Storage) GetUserDonations(ctx context.Context, userID string) ([]modelstorage.DonationStorageEntry, error) {
	var donations []modelstorage.DonationStorageEntry
	err := s.run(ctx, fmt.Sprintf("getting donations for %s", userID), func() error {
		err := s.DB.SelectContext(ctx, &donations, querySelectUserDonations, userID)
		if err != nil {
			return &storageErrors.ScanningPSQLError{Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return donations, nil
}

func (s *Storage) GetSuccessTotal(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.run(ctx, "getting successful donations total", func() error {
		err := s.DB.GetContext(ctx, &total, querySuccessTotal)
		if err != nil {
			return &storageErrors.ScanningPSQLError{Err: err}
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (s *Storage) CountCustomers(ctx context.Context) (int64, error) {
	var count int64
	err := s.run(ctx, "counting customers", func() error {
		err := s.DB.GetContext(ctx, &count, queryCountCustomers)
		if err != nil {
			return &storageErrors.ScanningPSQLError{Err: err}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Storage) GetCustomers(ctx context.Context) ([]modelstorage.UserStorageEntry, error) {
	var users []modelstorage.UserStorageEntry
	err := s.run(ctx, "getting customers", func() error {
		err := s.DB.SelectContext(ctx, &users, querySelectCustomers)
		if err != nil {
			return &storageErrors.ScanningPSQLError{Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Storage) GetUserTotals(ctx context.Context) ([]modelstorage.UserTotalStorageEntry, error) {
	var totals []modelstorage.UserTotalStorageEntry
	err := s.run(ctx, "getting per-user totals", func() error {
		err := s.DB.SelectContext(ctx, &totals, queryUserTotals)
		if err != nil {
			return &storageErrors.ScanningPSQLError{Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (s *Storage) GetPayerDonations(ctx context.Context) ([]modelstorage.PayerDonationStorageEntry, error) {
	var donations []modelstorage.PayerDonationStorageEntry
	err := s.run(ctx, "getting donations with payers", func() error {
		err := s.DB.SelectContext(ctx, &donations, queryPayerDonations)
		if err != nil {
			return &storageErrors.ScanningPSQLError{Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return donations, nil
}

func (s *Storage) createTables(ctx context.Context) error {
	var queries []string
	query := `CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL   PRIMARY KEY,
		user_id       TEXT        NOT NULL UNIQUE,
		name          TEXT        NOT NULL,
		email         TEXT        NOT NULL UNIQUE,
		password_hash TEXT        NOT NULL,
		role          TEXT        NOT NULL CHECK (role IN ('user', 'admin')),
		registered_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS donations (
		id         BIGSERIAL      PRIMARY KEY,
		user_id    TEXT           NOT NULL,
		amount     NUMERIC(12, 2) NOT NULL CHECK (amount > 0),
		status     TEXT           NOT NULL CHECK (status IN ('Pending', 'Success', 'Failed')),
		order_id   TEXT           NOT NULL UNIQUE,
		payment_id TEXT           NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ    NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ    NOT NULL DEFAULT now(),
		CHECK ((status = 'Success') = (payment_id <> ''))
	);`
	queries = append(queries, query)
	query = `CREATE INDEX IF NOT EXISTS donations_status_created_at_idx ON donations (status, created_at);`
	queries = append(queries, query)
	query = `CREATE INDEX IF NOT EXISTS donations_user_id_idx ON donations (user_id, created_at DESC);`
	queries = append(queries, query)
	for _, subquery := range queries {
		_, err := s.DB.ExecContext(ctx, subquery)
		if err != nil {
			return err
		}
	}
	return nil
}
