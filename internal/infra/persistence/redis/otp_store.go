package redis

import (
	"context"
	"encoding/json"
	"time"

	"warden/config"
	"warden/internal/domain/entity"
	"warden/internal/domain/repository"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// otpRecord is the stored JSON form of a challenge.
type otpRecord struct {
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
}

type otpChallengeStore struct {
	client    goredis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewOTPChallengeStore stores challenges as JSON strings. Keys expire once the
// challenge is past its expiry plus otp.retention.
func NewOTPChallengeStore(client goredis.UniversalClient, cfg *config.Config) repository.OTPChallengeRepository {
	s := &otpChallengeStore{
		client: client,
		prefix: defaultKeyPrefix,
		now:    time.Now,
	}
	if cfg.Redis != nil && cfg.Redis.Prefix != "" {
		s.prefix = cfg.Redis.Prefix
	}
	if cfg.OTP != nil {
		s.retention = cfg.OTP.Retention
	}

	return s
}

// maxAttemptRetries bounds the optimistic retries of RecordAttempt.
const maxAttemptRetries = 5

func (s *otpChallengeStore) key(email string) string {
	return s.prefix + ":otp:" + email
}

func (s *otpChallengeStore) issuedKey(email string) string {
	return s.prefix + ":otp-issued:" + email
}

// Find loads the challenge for the email.
func (s *otpChallengeStore) Find(ctx context.Context, email string) (*entity.OTPChallenge, error) {
	data, err := s.client.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, errors.WithStack(repository.ErrOTPChallengeNotFound)
		}

		return nil, errors.Wrap(err, "failed to get otp challenge")
	}

	record, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}

	return &entity.OTPChallenge{
		Email:     email,
		Code:      record.Code,
		IssuedAt:  record.IssuedAt,
		ExpiresAt: record.ExpiresAt,
		Attempts:  record.Attempts,
	}, nil
}

// Save writes a new challenge, replacing any previous one.
func (s *otpChallengeStore) Save(ctx context.Context, challenge *entity.OTPChallenge) error {
	data, err := json.Marshal(otpRecord{
		Code:      challenge.Code,
		IssuedAt:  challenge.IssuedAt,
		ExpiresAt: challenge.ExpiresAt,
		Attempts:  challenge.Attempts,
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode otp challenge")
	}

	ttl := challenge.ExpiresAt.Sub(s.now()) + s.retention
	if ttl < time.Second {
		ttl = time.Second
	}

	if err := s.client.Set(ctx, s.key(challenge.Email), data, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to save otp challenge")
	}

	return nil
}

// RecordAttempt bumps the attempt counter with a WATCH/MULTI check-and-set. The write keeps the
// key's TTL and is skipped when the key was consumed or replaced by another issue.
func (s *otpChallengeStore) RecordAttempt(ctx context.Context, challenge *entity.OTPChallenge) (int, bool, error) {
	key := s.key(challenge.Email)

	for range maxAttemptRetries {
		attempts, ok, err := s.recordAttempt(ctx, key, challenge)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, false, errors.Wrap(err, "failed to record otp attempt")
		}

		return attempts, ok, nil
	}

	return 0, false, errors.New("otp challenge changed concurrently while recording an attempt")
}

func (s *otpChallengeStore) recordAttempt(ctx context.Context, key string, challenge *entity.OTPChallenge) (int, bool, error) {
	var (
		attempts int
		updated  bool
	)

	err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to get otp challenge")
		}

		record, err := decodeRecord(data)
		if err != nil {
			return err
		}
		if record.Code != challenge.Code || !record.IssuedAt.Equal(challenge.IssuedAt) {
			return nil
		}

		record.Attempts++
		encoded, err := json.Marshal(record)
		if err != nil {
			return errors.Wrap(err, "failed to encode otp challenge")
		}

		if _, err := tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.SetArgs(ctx, key, encoded, goredis.SetArgs{Mode: "XX", KeepTTL: true})

			return nil
		}); err != nil {
			return err
		}

		attempts, updated = record.Attempts, true

		return nil
	}, key)

	return attempts, updated, err
}

// MarkIssued stores the issue time under its own key that expires after window.
func (s *otpChallengeStore) MarkIssued(ctx context.Context, email string, issuedAt time.Time, window time.Duration) error {
	if err := s.client.Set(ctx, s.issuedKey(email), issuedAt.UTC().Format(time.RFC3339Nano), window).Err(); err != nil {
		return errors.Wrap(err, "failed to mark otp issue")
	}

	return nil
}

// LastIssued reads the issue time written by MarkIssued.
func (s *otpChallengeStore) LastIssued(ctx context.Context, email string) (time.Time, bool, error) {
	value, err := s.client.Get(ctx, s.issuedKey(email)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return time.Time{}, false, nil
		}

		return time.Time{}, false, errors.Wrap(err, "failed to get otp issue mark")
	}

	issuedAt, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "failed to decode otp issue mark")
	}

	return issuedAt, true, nil
}

// Delete removes the challenge. DEL is atomic, so only one caller sees true.
func (s *otpChallengeStore) Delete(ctx context.Context, email string) (bool, error) {
	removed, err := s.client.Del(ctx, s.key(email)).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed to delete otp challenge")
	}

	return removed > 0, nil
}

func decodeRecord(data []byte) (otpRecord, error) {
	var record otpRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return otpRecord{}, errors.Wrap(err, "failed to decode otp challenge")
	}

	return record, nil
}
