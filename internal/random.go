package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	sessionIDSize = 16
	authTokenSize = 32
	maxOTPDigits  = 10
)

// NewSessionID returns 16 crypto-random bytes as 32 lowercase hex characters.
func NewSessionID() (string, error) {
	return randomHex(sessionIDSize)
}

// NewAuthToken returns 32 crypto-random bytes as 64 lowercase hex characters.
func NewAuthToken() (string, error) {
	return randomHex(authTokenSize)
}

func randomHex(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewOTP returns a string of digits drawn uniformly from crypto/rand.
// Leading zeros are kept.
func NewOTP(digits int) (string, error) {
	if digits < 1 || digits > maxOTPDigits {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}
