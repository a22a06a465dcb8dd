package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	ClaimUserID = "user_id"
	ClaimRole   = "role"
	ClaimType   = "type"

	tokenTypeAccess = "access"
)

var ErrInvalidClaims = errors.New("token is missing identity claims")

type Service interface {
	GenerateAccessToken(userID string, role user.Role) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpiration time.Duration
	tokenAuth             *jwtauth.JWTAuth
	now                   func() time.Time
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) (*JWTService, error) {
	expiration, err := time.ParseDuration(accessTokenExpirationTime)
	if err != nil {
		return nil, fmt.Errorf("invalid access token expiration %q: %w", accessTokenExpirationTime, err)
	}

	return &JWTService{
		accessTokenExpiration: expiration,
		tokenAuth:             jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                   time.Now,
	}, nil
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// GenerateAccessToken signs a bearer token carrying the caller's id and role.
func (j *JWTService) GenerateAccessToken(userID string, role user.Role) (token string, expiresAt int64, err error) {
	expiresAt = j.now().Add(j.accessTokenExpiration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		ClaimUserID: userID,
		ClaimRole:   string(role),
		ClaimType:   tokenTypeAccess,
		"exp":       expiresAt,
	})
	return tokenString, expiresAt, err
}

// IdentityFromClaims builds the caller identity from verified token claims.
func IdentityFromClaims(claims map[string]interface{}) (user.Identity, error) {
	if tokenType, ok := claims[ClaimType].(string); ok && tokenType != tokenTypeAccess {
		return user.Identity{}, ErrInvalidClaims
	}

	userID, _ := claims[ClaimUserID].(string)
	role, _ := claims[ClaimRole].(string)
	if userID == "" || !user.Role(role).Valid() {
		return user.Identity{}, ErrInvalidClaims
	}

	return user.Identity{UserID: userID, Role: user.Role(role)}, nil
}
