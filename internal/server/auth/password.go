// Package auth implements the credential and session-token primitives:
// bcrypt password hashing and HS256-signed bearer tokens.
package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost is fixed at build time. bcrypt embeds the cost in the hash, so
// raising it later only affects newly hashed passwords.
const bcryptCost = bcrypt.DefaultCost

// HashPassword applies a salted, deliberately slow one-way hash to password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash. It never
// returns an error: a malformed hash simply verifies as false.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
