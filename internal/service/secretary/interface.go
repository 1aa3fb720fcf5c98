// Package secretary provides methods for issuing and validating access tokens.
package secretary

import "github.com/danilovkiri/dk-go-donations/internal/models/modelclaims"

// Secretary defines a set of methods for types implementing Secretary.
type Secretary interface {
	NewToken(userID, role string) (string, error)
	ValidateToken(accessToken string) (*modelclaims.MyCustomClaims, error)
}
