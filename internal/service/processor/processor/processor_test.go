package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	serviceErrors "github.com/danilovkiri/dk-go-donations/internal/service/errors"
	"github.com/danilovkiri/dk-go-donations/internal/service/secretary/secretary"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/v1/errors"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/inmemory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProcessor(t *testing.T) (*Processor, *secretary.Secretary) {
	log := zerolog.Nop()
	sec, err := secretary.NewSecretaryService(&config.SecretConfig{SecretKey: "key", TokenTTL: time.Minute})
	require.NoError(t, err)
	proc, err := InitService(inmemory.InitStorage(&log), sec)
	require.NoError(t, err)
	return proc, sec
}

func TestRegisterAndLogin(t *testing.T) {
	proc, sec := newProcessor(t)
	ctx := context.Background()

	info, err := proc.AddNewUser(ctx, modeldto.User{Name: "Alice", Email: " Alice@Example.com ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", info.Email)
	assert.Equal(t, "user", info.Role)
	assert.NotEmpty(t, info.ID)

	login, err := proc.LoginUser(ctx, modeldto.Credentials{Email: "alice@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, info.ID, login.User.ID)

	claims, err := sec.ValidateToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, info.ID, claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestAddNewUser_Duplicate(t *testing.T) {
	proc, _ := newProcessor(t)
	ctx := context.Background()
	_, err := proc.AddNewUser(ctx, modeldto.User{Name: "Alice", Email: "a@example.com", Password: "secret"})
	require.NoError(t, err)
	_, err = proc.AddNewUser(ctx, modeldto.User{Name: "Alice 2", Email: "A@example.com", Password: "other"})
	var alreadyExistsError *storageErrors.AlreadyExistsError
	assert.True(t, errors.As(err, &alreadyExistsError))
}

func TestAddNewUser_Invalid(t *testing.T) {
	proc, _ := newProcessor(t)
	tests := []struct {
		name string
		user modeldto.User
	}{
		{name: "missing name", user: modeldto.User{Email: "a@example.com", Password: "secret"}},
		{name: "missing email", user: modeldto.User{Name: "Alice", Password: "secret"}},
		{name: "missing password", user: modeldto.User{Name: "Alice", Email: "a@example.com"}},
		{name: "unknown role", user: modeldto.User{Name: "Alice", Email: "a@example.com", Password: "secret", Role: "root"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := proc.AddNewUser(context.Background(), tt.user)
			var invalidCredentials *serviceErrors.InvalidCredentials
			assert.True(t, errors.As(err, &invalidCredentials))
		})
	}
}

func TestLoginUser_Rejects(t *testing.T) {
	proc, _ := newProcessor(t)
	ctx := context.Background()
	_, err := proc.AddNewUser(ctx, modeldto.User{Name: "Alice", Email: "a@example.com", Password: "secret"})
	require.NoError(t, err)

	for _, creds := range []modeldto.Credentials{
		{Email: "a@example.com", Password: "wrong"},
		{Email: "b@example.com", Password: "secret"},
	} {
		_, err := proc.LoginUser(ctx, creds)
		var invalidCredentials *serviceErrors.InvalidCredentials
		assert.True(t, errors.As(err, &invalidCredentials))
	}
}

func TestInitService_NilArguments(t *testing.T) {
	_, err := InitService(nil, nil)
	var nilArgument *serviceErrors.ServiceFoundNilArgument
	assert.True(t, errors.As(err, &nilArgument))
}
