// ABOUTME: JWT session tokens for authenticating connector clients
// ABOUTME: HS256 with a project claim binding tokens to one deployment

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claim names carried in session tokens.
const (
	claimProject = "gcp_agent_assist_project"
	claimUser    = "gcp_agent_assist_user"
)

// Token errors
var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token expired")
	ErrMissingClaim    = errors.New("missing required claim")
	ErrProjectMismatch = errors.New("token issued for a different project")
)

// TokenVerifier defines the interface for session token verification.
type TokenVerifier interface {
	Verify(tokenString string) (user string, err error)
}

// JWTVerifier implements TokenVerifier using HS256 signed JWTs. Tokens
// carry the deployment's project ID so a token minted for one deployment
// cannot open sessions on another.
type JWTVerifier struct {
	secret  []byte
	project string
}

// NewJWTVerifier creates a verifier bound to the given signing secret and
// project ID.
func NewJWTVerifier(secret []byte, project string) *JWTVerifier {
	return &JWTVerifier{secret: secret, project: project}
}

// Verify validates the token's signature, expiry, and project claim, and
// returns the user identity the token was minted for.
func (v *JWTVerifier) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	project, ok := claims[claimProject].(string)
	if !ok || project == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingClaim, claimProject)
	}
	if project != v.project {
		return "", ErrProjectMismatch
	}

	// The user claim is informational; an empty value is a valid
	// anonymous session.
	user, _ := claims[claimUser].(string)
	return user, nil
}

// Generate creates a session token for the given user with the configured
// project claim and expiration.
func (v *JWTVerifier) Generate(user string, expiresIn time.Duration) (string, error) {
	claims := jwt.MapClaims{
		claimProject: v.project,
		claimUser:    user,
		"exp":        time.Now().Add(expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
