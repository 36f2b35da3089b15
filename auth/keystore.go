package auth

import (
	"context"
	"crypto/rand"
	"io"
	"sync/atomic"
	"time"
)

// DefaultKeyRotationPeriod bounds the lifetime of every issued token:
// once the key rotates, tokens signed with the previous key stop
// verifying even if their own expiry has not elapsed.
const DefaultKeyRotationPeriod = 24 * time.Hour

// signingKeySize is the HMAC-SHA512 key size.
const signingKeySize = 64

type signingKey struct {
	secret []byte
}

// InMemoryKeyStore holds the current symmetric signing key behind an
// atomic pointer. Readers never lock; the rotation goroutine started by
// Start is the only writer, so a plain atomic publish is enough for
// readers to observe either the old or the new key, never a torn one.
type InMemoryKeyStore struct {
	key    atomic.Pointer[signingKey]
	period time.Duration
	logger Logger
}

// NewInMemoryKeyStore seeds a fresh random key and returns a store that
// rotates it every period once Start is called. A period below one
// millisecond falls back to DefaultKeyRotationPeriod.
func NewInMemoryKeyStore(period time.Duration, logger Logger) *InMemoryKeyStore {
	if period < time.Millisecond {
		period = DefaultKeyRotationPeriod
	}
	if logger == nil {
		logger = defLogger{}
	}

	s := &InMemoryKeyStore{
		period: period,
		logger: logger,
	}

	secret, err := newSigningKey()
	if err != nil {
		// crypto/rand failing at process start is not survivable:
		// without a seed key there is nothing to keep serving.
		panic("auth: unable to seed signing key: " + err.Error())
	}
	s.key.Store(&signingKey{secret: secret})

	return s
}

// Start launches the single rotation writer. It returns immediately;
// rotation stops when ctx is cancelled.
func (s *InMemoryKeyStore) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.rotate()
			}
		}
	}()
}

// Current returns the signing key in effect right now. The caller must
// not mutate the returned slice.
func (s *InMemoryKeyStore) Current() []byte {
	return s.key.Load().secret
}

func (s *InMemoryKeyStore) rotate() {
	secret, err := newSigningKey()
	if err != nil {
		// keep serving the previous key rather than go keyless
		s.logger.Error("signing key rotation failed, keeping previous key", "error", err)
		return
	}

	s.key.Store(&signingKey{secret: secret})
	s.logger.Info("new signing key generated")
}

func newSigningKey() ([]byte, error) {
	secret := make([]byte, signingKeySize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, err
	}
	return secret, nil
}
