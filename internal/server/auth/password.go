package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost is the bcrypt work factor used unless configured otherwise.
const DefaultCost = 12

// PasswordHasher hashes and verifies passwords with bcrypt.
//
// bcrypt at cost 12 takes a few hundred milliseconds of CPU, so every call
// runs on its own goroutine behind a weighted semaphore: at most
// `concurrency` computations are in flight and a waiting caller gives up as
// soon as its context is done.
type PasswordHasher struct {
	cost int
	sem  *semaphore.Weighted
}

func NewPasswordHasher(cost int, concurrency int) *PasswordHasher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PasswordHasher{cost: cost, sem: semaphore.NewWeighted(int64(concurrency))}
}

// Hash returns a salted bcrypt hash of plaintext. Passwords longer than 72
// bytes are rejected with common.ErrorValidation.
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	hash, err := run(ctx, h.sem, func() ([]byte, error) {
		return bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	})
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password must not exceed 72 bytes", common.ErrorValidation)
		}
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. A mismatch is (false, nil);
// an error is returned only for a malformed hash or a cancelled context.
func (h *PasswordHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	_, err := run(ctx, h.sem, func() ([]byte, error) {
		return nil, bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

type result struct {
	b   []byte
	err error
}

func run(ctx context.Context, sem *semaphore.Weighted, fn func() ([]byte, error)) ([]byte, error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	// buffered so the worker never blocks if the caller has gone away
	done := make(chan result, 1)
	go func() {
		defer sem.Release(1)
		b, err := fn()
		done <- result{b: b, err: err}
	}()

	select {
	case r := <-done:
		return r.b, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
