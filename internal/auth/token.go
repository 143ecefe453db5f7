// ABOUTME: Credential validation for chat sessions and HTTP requests
// ABOUTME: HS256 JWTs with the user id in the sub claim

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CredentialTypeBearer is the only credential type the validator accepts.
const CredentialTypeBearer = "Bearer"

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("credential expired")
)

// Credential is the opaque credential presented by a client, either as
// the first websocket frame or derived from an Authorization header.
type Credential struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// Validator maps a credential to a user identity or rejects it.
type Validator interface {
	Validate(ctx context.Context, cred Credential) (uuid.UUID, error)
}

// JWTValidator implements Validator using HS256 signed JWTs.
type JWTValidator struct {
	secret []byte
}

// NewJWTValidator creates a validator with the given signing secret.
func NewJWTValidator(secret []byte) *JWTValidator {
	return &JWTValidator{secret: secret}
}

// Validate checks the credential type and token signature and returns the
// user identity from the sub claim.
func (v *JWTValidator) Validate(_ context.Context, cred Credential) (uuid.UUID, error) {
	if cred.Type != CredentialTypeBearer {
		return uuid.Nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidCredential, cred.Type)
	}

	token, err := jwt.Parse(cred.Token, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrExpiredCredential
		}
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid {
		return uuid.Nil, ErrInvalidCredential
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidCredential
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return uuid.Nil, fmt.Errorf("%w: missing sub claim", ErrInvalidCredential)
	}

	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed sub claim", ErrInvalidCredential)
	}
	return id, nil
}

// Issue creates a signed token for the given user identity.
func (v *JWTValidator) Issue(userID uuid.UUID, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
