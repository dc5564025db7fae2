package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	adminIssuer  = "duocall-admin"
	adminSubject = "admin"
)

var errAdminDisabled = errors.New("admin secret not configured")

// GenerateAdminToken signs an HS256 admin token valid for ttl.
func GenerateAdminToken(secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errAdminDisabled
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    adminIssuer,
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func verifyAdminToken(secret, tok string) error {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(adminIssuer),
		jwt.WithSubject(adminSubject),
		jwt.WithExpirationRequired(),
	)
	return err
}

// AdminAuth rejects requests without a valid admin bearer token. With no
// secret configured the admin surface is off entirely.
func (h *Handler) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.AdminSecret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": errAdminDisabled.Error()})
			return
		}
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}
		if err := verifyAdminToken(h.AdminSecret, strings.TrimPrefix(authHeader, "Bearer ")); err != nil {
			h.Log.Debug("admin.auth_failed", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}
		c.Next()
	}
}
