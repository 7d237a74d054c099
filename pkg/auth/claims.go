package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// RegisterTokenPayload captures the data available when minting a JWT.
type RegisterTokenPayload struct {
	RegisterID string
	StoreID    string
	JTI        string
}

// RegisterTokenClaims represents the typed JWT a register presents to the central API.
type RegisterTokenClaims struct {
	RegisterID string `json:"register_id"`
	StoreID    string `json:"store_id"`
	jwt.RegisteredClaims
}
