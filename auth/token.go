// Package auth implements the identity collaborator: it turns opaque
// bearer tokens into verified identities. The core treats it as a
// black box behind contract.IdentityVerifier.
package auth

import (
	"chat-relay/contract"
	"chat-relay/domain"
	apperrors "chat-relay/errors"
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var _ contract.IdentityVerifier = (*Verifier)(nil)

// CustomClaims defines the data stored inside the JWT.
type CustomClaims struct {
	PrincipalID string `json:"principal_id"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Mint creates a signed token for a principal. Exposed for the dev
// token endpoint and tests; production deployments mint tokens in the
// identity service.
func (v *Verifier) Mint(identity domain.Identity, ttl time.Duration) (string, error) {
	claims := &CustomClaims{
		PrincipalID: identity.PrincipalID,
		DisplayName: identity.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    v.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify parses and validates the signature and expiration of a token
// and returns the verified identity it carries.
func (v *Verifier) Verify(_ context.Context, tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.PrincipalID == "" {
		return domain.Identity{}, apperrors.ErrInvalidToken
	}
	return domain.Identity{PrincipalID: claims.PrincipalID, DisplayName: claims.DisplayName}, nil
}
