package auth

import (
	"errors"
	"time"

	"github.com/apetrenko/filevault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claim set plus the authenticated username
// as the subject.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken issues an HS256-signed bearer token asserting subject,
// valid for validityDuration from now.
func GenerateToken(subject string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetSubjectFromToken validates signature and expiry and returns the subject
// claim. Clients observe only valid/invalid; the returned error keeps the
// specific cause (expired vs malformed vs bad signature) for logging.
func GetSubjectFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
