package utils

import (
	"crypto/rand"

	"golang.org/x/crypto/bcrypt"
)

// GenerateOTP generates a 6-digit OTP
func GenerateOTP() (string, error) {
	const charset = "0123456789"

	code := make([]byte, 6)
	if _, err := rand.Read(code); err != nil {
		return "", err
	}
	for i := range code {
		code[i] = charset[int(code[i])%len(charset)]
	}
	return string(code), nil
}

// HashOTP hashes an OTP for storage alongside the user row.
func HashOTP(otp string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareOTP reports whether the plaintext OTP matches its stored hash.
func CompareOTP(otp, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(otp)) == nil
}
