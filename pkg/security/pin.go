package security

import (
	"crypto/rand"
	"errors"
)

// GeneratePIN returns length uniformly random decimal digits. Leading zeros
// are significant.
func GeneratePIN(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("pin length must be positive")
	}
	pin := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(pin) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// 250 is the largest multiple of 10 below 256; rejecting the
			// rest keeps the digits unbiased.
			if b < 250 && len(pin) < length {
				pin = append(pin, '0'+b%10)
			}
		}
	}
	return string(pin), nil
}
