package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleRider  Role = "RIDER"
	RoleDriver Role = "DRIVER"
	RoleAdmin  Role = "ADMIN"
)

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleRider, RoleDriver, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

const claimsKey = "auth.claims"

type AppClaims struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies HS256 tokens.
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{secretKey: []byte(secretKey), tokenDuration: tokenDuration, now: time.Now}
}

func (m *JWTManager) GenerateToken(userID string, role Role) (string, error) {
	if userID == "" {
		return "", errors.New("user id must not be empty")
	}
	now := m.now()
	claims := AppClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "rideshare",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

// ParseToken checks the signature and expiry and returns the claims.
func (m *JWTManager) ParseToken(tokenString string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*AppClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// claims on the gin context.
func (m *JWTManager) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, http.StatusUnauthorized, "missing authorization header")
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			abort(c, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		claims, err := m.ParseToken(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, err.Error())
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole must run after RequireAuth. Admins pass every role check.
func RequireRole(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "not authenticated")
			return
		}
		if claims.Role == RoleAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, fmt.Sprintf("role %s may not do this", claims.Role))
	}
}

// GetClaims returns the claims stored by RequireAuth.
func GetClaims(c *gin.Context) (*AppClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*AppClaims)
	return claims, ok
}

func abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{
		"error":   http.StatusText(code),
		"message": msg,
	})
}
