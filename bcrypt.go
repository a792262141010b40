package auth

import (
	"context"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher is a bcrypt password hasher with a bounded worker pool. Hashing is
// CPU bound; the semaphore caps how many comparisons run at once so a burst
// of logins cannot starve the goroutines serving unrelated requests.
type Hasher struct {
	cost      int
	sem       *semaphore.Weighted
	decoyHash []byte
}

type HasherOption func(*Hasher)

// WithHasherCost overrides the bcrypt work factor
func WithHasherCost(cost int) HasherOption {
	return func(h *Hasher) {
		h.cost = cost
	}
}

// WithHasherParallelism caps concurrent bcrypt computations
func WithHasherParallelism(n int) HasherOption {
	return func(h *Hasher) {
		if n > 0 {
			h.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// NewHasher builds a Hasher with the central cost setting and a pool sized
// to the available CPUs
func NewHasher(opts ...HasherOption) *Hasher {
	h := &Hasher{
		cost: passwordHashCost(),
		sem:  semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	// Comparison target for malformed stored hashes, so Verify burns the
	// same bcrypt work whether the hash is wrong or unparseable.
	decoy, err := bcrypt.GenerateFromPassword([]byte("decoy-password-never-matches"), h.cost)
	if err == nil {
		h.decoyHash = decoy
	}

	return h
}

// Hash generates a password hash
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}

	return string(hashed), nil
}

// Verify validates the given cleartext password against the stored hash.
// It reports false on mismatch and on malformed hashes; a malformed hash
// still pays for one bcrypt comparison against a decoy.
func (h *Hasher) Verify(ctx context.Context, password, hash string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true
	}

	if err != bcrypt.ErrMismatchedHashAndPassword && h.decoyHash != nil {
		bcrypt.CompareHashAndPassword(h.decoyHash, []byte(password))
	}

	return false
}

var _ PasswordHasher = (*Hasher)(nil)
