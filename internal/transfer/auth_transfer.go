package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type ApiKeyCreated struct {
	ID        int64  `json:"id"`
	ApiKey    string `json:"apiKey"`
	ApiSecret string `json:"apiSecret"`
}
