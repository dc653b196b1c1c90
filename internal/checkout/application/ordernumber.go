package application

import (
	"context"
	"crypto/rand"
	"errors"

	"github.com/yourbarrio/checkout-service/internal/checkout/domain"
)

const (
	orderNumberPrefix   = "YB-"
	orderNumberLength   = 6
	orderNumberAttempts = 5

	// Ambiguous characters (0/O, 1/I/L) are excluded; the number is read
	// aloud over the phone at pickup counters.
	orderNumberAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// NewOrderNumber generates a candidate human-facing order number.
func NewOrderNumber() (string, error) {
	buf := make([]byte, orderNumberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return orderNumberPrefix + string(buf), nil
}

// InsertFunc attempts to persist an order under the candidate number. It
// returns domain.ErrOrderNumberTaken on a uniqueness collision; any other
// error is treated as fatal.
type InsertFunc func(ctx context.Context, number string) error

// AllocateOrderNumber runs insert with fresh candidates until one sticks.
// Only collisions are retried, up to maxAttempts; exhaustion yields
// domain.ErrOrderCreationFailed.
func AllocateOrderNumber(ctx context.Context, gen func() (string, error), insert InsertFunc, maxAttempts int) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		number, err := gen()
		if err != nil {
			return "", err
		}
		err = insert(ctx, number)
		switch {
		case err == nil:
			return number, nil
		case errors.Is(err, domain.ErrOrderNumberTaken):
			continue
		default:
			return "", err
		}
	}
	return "", domain.ErrOrderCreationFailed
}
