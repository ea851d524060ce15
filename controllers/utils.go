package controllers

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

func IntPointer(i int) *int {
	return &i
}

// GenerateSessionToken signs an HS256 token whose subject is the session id.
func GenerateSessionToken(sessionID string, secret string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sessionID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	return token.SignedString([]byte(secret))
}

func wantsWait(c echo.Context) bool {
	wait, err := strconv.ParseBool(c.QueryParam("wait"))
	return err == nil && wait
}
