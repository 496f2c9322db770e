package deskd

import (
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt work factor for new hashes.
const PasswordHashCost = 10

// HashPassword will generate a salted password hash. Two calls on the same
// plaintext yield different outputs; bcrypt salts per call.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", goerrors.New("cannot hash an empty password", goerrors.CategoryBadInput)
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	return string(h), err
}

// VerifyPassword reports whether the given cleartext password matches the
// hashed form. A malformed hash is a mismatch, never an error.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// decoyHash is compared against when a login misses the store so that unknown
// emails cost the same as wrong passwords.
var decoyHash = func() string {
	h, err := HashPassword("deskd-decoy-password")
	if err != nil {
		panic(err)
	}
	return h
}()
