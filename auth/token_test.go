package auth

import (
	"chat-relay/domain"
	apperrors "chat-relay/errors"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifier_Mint_And_Verify_Round_Trip(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier("a-shared-secret", "chat-relay")
	identity := domain.Identity{PrincipalID: "alice", DisplayName: "Alice"}

	token, err := verifier.Mint(identity, time.Minute)
	req.NoError(err)
	req.NotEmpty(token)

	verified, err := verifier.Verify(context.Background(), token)
	req.NoError(err)
	req.Equal(identity, verified)
}

func TestVerifier_Rejects_Garbage_Token(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier("a-shared-secret", "chat-relay")

	_, err := verifier.Verify(context.Background(), "definitely.not.a.jwt")
	req.ErrorIs(err, apperrors.ErrInvalidToken)
}

func TestVerifier_Rejects_Token_Signed_With_Another_Secret(t *testing.T) {
	req := require.New(t)
	minter := NewVerifier("their-secret", "chat-relay")
	verifier := NewVerifier("our-secret", "chat-relay")

	token, err := minter.Mint(domain.Identity{PrincipalID: "mallory", DisplayName: "Mallory"}, time.Minute)
	req.NoError(err)

	_, err = verifier.Verify(context.Background(), token)
	req.ErrorIs(err, apperrors.ErrInvalidToken)
}

func TestVerifier_Rejects_Expired_Token(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier("a-shared-secret", "chat-relay")

	token, err := verifier.Mint(domain.Identity{PrincipalID: "alice", DisplayName: "Alice"}, -time.Minute)
	req.NoError(err)

	_, err = verifier.Verify(context.Background(), token)
	req.ErrorIs(err, apperrors.ErrInvalidToken)
}

func TestVerifier_Rejects_Claims_Without_Principal(t *testing.T) {
	req := require.New(t)
	verifier := NewVerifier("a-shared-secret", "chat-relay")

	token, err := verifier.Mint(domain.Identity{DisplayName: "Nobody"}, time.Minute)
	req.NoError(err)

	_, err = verifier.Verify(context.Background(), token)
	req.ErrorIs(err, apperrors.ErrInvalidToken)
}
