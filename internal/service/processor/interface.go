package processor

import (
	"context"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
)

type Processor interface {
	AddNewUser(ctx context.Context, user modeldto.User) (*modeldto.UserInfo, error)
	LoginUser(ctx context.Context, credentials modeldto.Credentials) (*modeldto.Login, error)
}
