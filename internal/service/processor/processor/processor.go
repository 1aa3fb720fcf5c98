// Package processor provides user registration and login on top of the user records.
package processor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	serviceErrors "github.com/danilovkiri/dk-go-donations/internal/service/errors"
	"github.com/danilovkiri/dk-go-donations/internal/service/secretary"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/v1/errors"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/modelstorage"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Processor defines attributes of a struct available to its methods.
type Processor struct {
	storage   storage.Register
	secretary secretary.Secretary
}

// InitService initializes a user registration and login service.
func InitService(st storage.Register, sec secretary.Secretary) (*Processor, error) {
	if st == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil storage was passed to service initializer"}
	}
	if sec == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil secretary was passed to service initializer"}
	}
	return &Processor{
		storage:   st,
		secretary: sec,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AddNewUser processes user register requests.
func (proc *Processor) AddNewUser(ctx context.Context, user modeldto.User) (*modeldto.UserInfo, error) {
	email := normalizeEmail(user.Email)
	if strings.TrimSpace(user.Name) == "" || email == "" || user.Password == "" {
		return nil, &serviceErrors.InvalidCredentials{Msg: "name, email and password are required"}
	}
	role := user.Role
	if role == "" {
		role = modelstorage.RoleUser
	}
	if role != modelstorage.RoleUser && role != modelstorage.RoleAdmin {
		return nil, &serviceErrors.InvalidCredentials{Msg: "role must be either user or admin"}
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	entry := modelstorage.UserStorageEntry{
		UserID:       uuid.New().String(),
		Name:         strings.TrimSpace(user.Name),
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         role,
		RegisteredAt: time.Now(),
	}
	err = proc.storage.AddNewUser(ctx, entry)
	if err != nil {
		return nil, err
	}
	return &modeldto.UserInfo{ID: entry.UserID, Name: entry.Name, Email: entry.Email, Role: entry.Role}, nil
}

// LoginUser processes user login requests.
func (proc *Processor) LoginUser(ctx context.Context, credentials modeldto.Credentials) (*modeldto.Login, error) {
	user, err := proc.storage.GetUserByEmail(ctx, normalizeEmail(credentials.Email))
	if err != nil {
		var notFoundError *storageErrors.NotFoundError
		if errors.As(err, &notFoundError) {
			return nil, &serviceErrors.InvalidCredentials{Msg: "invalid email or password"}
		}
		return nil, err
	}
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credentials.Password))
	if err != nil {
		return nil, &serviceErrors.InvalidCredentials{Msg: "invalid email or password"}
	}
	accessToken, err := proc.secretary.NewToken(user.UserID, user.Role)
	if err != nil {
		return nil, err
	}
	return &modeldto.Login{
		Message: "Login successful",
		Token:   accessToken,
		User:    modeldto.UserInfo{ID: user.UserID, Name: user.Name, Email: user.Email, Role: user.Role},
	}, nil
}
