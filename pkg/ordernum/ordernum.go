package ordernum

import (
	"crypto/rand"
	"fmt"
)

const (
	// OrderPrefix distinguishes buyer-facing order numbers.
	OrderPrefix = "ORD"
	// SellerOrderPrefix distinguishes per-seller order numbers.
	SellerOrderPrefix = "SLR"

	suffixLength = 10
	alphabet     = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NewOrderNumber returns a human-readable order number, e.g. ORD-7KQ2M9XH4B.
func NewOrderNumber() (string, error) {
	return generate(OrderPrefix)
}

// NewSellerOrderNumber returns a per-seller order number, e.g. SLR-N3T8W2ZQ5C.
func NewSellerOrderNumber() (string, error) {
	return generate(SellerOrderPrefix)
}

func generate(prefix string) (string, error) {
	buf := make([]byte, suffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading randomness: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return prefix + "-" + string(buf), nil
}
