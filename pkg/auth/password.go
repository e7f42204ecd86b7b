package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	GeneratedPasswordLength = 10
	UserIDLength            = 10
)

const (
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	digits       = "0123456789"
)

// BcryptCost is the work factor for new hashes. Tests lower it.
var BcryptCost = 12

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// GeneratePassword returns a random alphanumeric password for new and reset accounts
func GeneratePassword() (string, error) {
	password, err := randomString(alphanumeric, GeneratedPasswordLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return password, nil
}

// GenerateUserID returns the public numeric identifier shown to users
func GenerateUserID() (string, error) {
	id, err := randomString(digits, UserIDLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate user id: %w", err)
	}
	return id, nil
}

func randomString(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
