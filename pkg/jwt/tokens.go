package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims defines the JWT payload: the user identity plus standard metadata.
type Claims struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
	jwtlib.RegisteredClaims
}

// GenerateToken issues a signed HS256 token carrying the user id and email.
func GenerateToken(userID int64, email, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    "taskboard",
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse validates signature and expiry, returning the embedded claims.
// Expired or tampered tokens fail.
func Parse(token string, secret string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Decode is the lenient counterpart of Parse: it returns nil instead of an
// error when the token is malformed, mis-signed, or expired.
func Decode(token string, secret string) *Claims {
	claims, err := Parse(token, secret)
	if err != nil {
		return nil
	}
	return claims
}
