package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"warden/config"
	"warden/internal/domain/entity"
	"warden/internal/domain/repository"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// OTPStoreParams holds the dependencies of the in-memory challenge store.
type OTPStoreParams struct {
	fx.In

	Lifecycle fx.Lifecycle `optional:"true"`
	Config    *config.Config
	Logger    *slog.Logger
}

// OTPChallengeStore keeps challenges in a map. Expired entries linger for the
// configured retention so they still report as expired, and are dropped by Sweep.
type OTPChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]*entity.OTPChallenge
	issued     map[string]issueMark
	retention  time.Duration
	now        func() time.Time
}

type issueMark struct {
	at    time.Time
	until time.Time
}

var _ repository.OTPChallengeRepository = (*OTPChallengeStore)(nil)

// NewOTPChallengeStore creates the store and, when otp.sweepInterval is set, a background sweeper
// tied to the application lifecycle.
func NewOTPChallengeStore(params OTPStoreParams) *OTPChallengeStore {
	store := &OTPChallengeStore{
		challenges: make(map[string]*entity.OTPChallenge),
		issued:     make(map[string]issueMark),
		now:        time.Now,
	}

	cfg := params.Config.OTP
	if cfg == nil {
		return store
	}
	store.retention = cfg.Retention

	if cfg.SweepInterval <= 0 || params.Lifecycle == nil {
		return store
	}

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go store.runSweeper(sweepCtx, params.Logger, cfg.SweepInterval)

			return nil
		},
		OnStop: func(context.Context) error {
			cancelSweep()

			return nil
		},
	})

	return store
}

// Find returns the stored challenge.
func (s *OTPChallengeStore) Find(_ context.Context, email string) (*entity.OTPChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[email]
	if !ok {
		return nil, errors.WithStack(repository.ErrOTPChallengeNotFound)
	}
	found := *challenge

	return &found, nil
}

// Save stores a new challenge, replacing any previous one.
func (s *OTPChallengeStore) Save(_ context.Context, challenge *entity.OTPChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *challenge
	s.challenges[challenge.Email] = &stored

	return nil
}

// RecordAttempt bumps the attempt counter if the stored challenge is still the given one.
func (s *OTPChallengeStore) RecordAttempt(_ context.Context, challenge *entity.OTPChallenge) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.challenges[challenge.Email]
	if !ok || !sameIssue(stored, challenge) {
		return 0, false, nil
	}
	stored.Attempts++

	return stored.Attempts, true, nil
}

// MarkIssued remembers the issue time until window has passed.
func (s *OTPChallengeStore) MarkIssued(_ context.Context, email string, issuedAt time.Time, window time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issued[email] = issueMark{at: issuedAt, until: s.now().Add(window)}

	return nil
}

// LastIssued returns the last recorded issue time for the email.
func (s *OTPChallengeStore) LastIssued(_ context.Context, email string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mark, ok := s.issued[email]
	if !ok {
		return time.Time{}, false, nil
	}

	return mark.at, true, nil
}

// Delete removes the challenge and reports whether it was present.
func (s *OTPChallengeStore) Delete(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.challenges[email]; !ok {
		return false, nil
	}
	delete(s.challenges, email)

	return true, nil
}

// Sweep drops challenges whose retention window has passed and issue marks past their window.
// It returns how many challenges were removed.
func (s *OTPChallengeStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for email, challenge := range s.challenges {
		if now.After(challenge.ExpiresAt.Add(s.retention)) {
			delete(s.challenges, email)
			removed++
		}
	}
	for email, mark := range s.issued {
		if now.After(mark.until) {
			delete(s.issued, email)
		}
	}

	return removed
}

func sameIssue(a, b *entity.OTPChallenge) bool {
	return a.Code == b.Code && a.IssuedAt.Equal(b.IssuedAt)
}

// Len returns the number of stored challenges.
func (s *OTPChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.challenges)
}

func (s *OTPChallengeStore) runSweeper(ctx context.Context, logger *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 && logger != nil {
				logger.LogAttrs(ctx, slog.LevelDebug, "Swept otp challenges", slog.Int("removed", removed))
			}
		}
	}
}
