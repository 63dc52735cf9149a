package random

import (
	crand "crypto/rand"
	"math/big"
)

const (
	charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// referenceCharset drops characters that are easy to misread aloud or on a
	// receipt (0/O, 1/I/L).
	referenceCharset = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
)

func StringSecure(length int) (string, error) {
	return fromCharset(charset, length)
}

// Reference returns a short uppercase code suitable for order and booking
// references, e.g. "FD-7KQ2MX".
func Reference(prefix string, length int) (string, error) {
	s, err := fromCharset(referenceCharset, length)
	if err != nil {
		return "", err
	}
	return prefix + "-" + s, nil
}

func fromCharset(set string, length int) (string, error) {
	b := make([]byte, length)
	l := big.NewInt(int64(len(set)))
	for i := range b {
		num, err := crand.Int(crand.Reader, l)
		if err != nil {
			return "", err
		}
		b[i] = set[num.Int64()]
	}
	return string(b), nil
}
