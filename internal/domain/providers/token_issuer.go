package providers

import "github.com/rudzz/marketplace/pkg/jwtutil"

// TokenIssuer signs and verifies session tokens
type TokenIssuer interface {
	GenerateTokenPair(userID int64, role string) (*jwtutil.TokenPair, error)
	GenerateToken(userID int64, role string, tokenType jwtutil.TokenType) (string, error)
	ValidateToken(token string, expected jwtutil.TokenType) (*jwtutil.UserClaims, error)
}
