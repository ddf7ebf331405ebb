package middleware

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/voxmarket/backend/internal/models"
	"github.com/anonto42/voxmarket/backend/internal/repositories"
)

// IDTokenVerifier verifies Firebase ID tokens. *auth.Client implements it.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseResolver maps a Firebase ID token to the claims of the local user
// registered under its UID.
type FirebaseResolver struct {
	verifier IDTokenVerifier
	users    repositories.UserRepository
}

// NewFirebaseResolver returns nil when verifier is nil so Firebase stays disabled.
func NewFirebaseResolver(verifier IDTokenVerifier, users repositories.UserRepository) *FirebaseResolver {
	if verifier == nil {
		return nil
	}
	return &FirebaseResolver{verifier: verifier, users: users}
}

func (f *FirebaseResolver) Resolve(ctx context.Context, idToken string) (*models.JwtCustomClaims, error) {
	token, err := f.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("invalid or expired ID token: %w", err)
	}

	// Only users who went through /auth/firebase-login have a role
	user, err := f.users.GetUserByFirebaseUID(token.UID)
	if err != nil {
		return nil, fmt.Errorf("no user for firebase uid %s: %w", token.UID, err)
	}
	return &models.JwtCustomClaims{
		UserID: user.PublicID(),
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}, nil
}
