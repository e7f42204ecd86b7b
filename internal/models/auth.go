package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the JWT payload issued at login
type TokenClaims struct {
	Authorities []string `json:"authorities"`
	jwt.RegisteredClaims
}
