package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"warden/config"
	"warden/internal/domain/entity"
	domainerrors "warden/internal/domain/errors"
	"warden/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// tokenClaims is the wire form of both token kinds.
type tokenClaims struct {
	Role string `json:"role"`
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewJWTService is the constructor for jwtService.
// It takes configuration values to create a new token service instance.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.SecretKey.Access == "" || cfg.SecretKey.Refresh == "" {
		return nil, errors.New("jwt secrets must be provided")
	}

	s := &jwtService{
		accessSecret:  []byte(cfg.SecretKey.Access),
		refreshSecret: []byte(cfg.SecretKey.Refresh),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		now:           time.Now,
	}
	if cfg.Token != nil {
		s.issuer = cfg.Token.Issuer
		if cfg.Token.AccessTTL > 0 {
			s.accessTTL = cfg.Token.AccessTTL
		}
		if cfg.Token.RefreshTTL > 0 {
			s.refreshTTL = cfg.Token.RefreshTTL
		}
	}
	if s.accessTTL >= s.refreshTTL {
		return nil, errors.Errorf("access token ttl %s must be shorter than refresh token ttl %s", s.accessTTL, s.refreshTTL)
	}

	return s, nil
}

// IssuePair creates a new access token and refresh token for a given subject and role.
func (s *jwtService) IssuePair(subjectID uuid.UUID, role entity.Role) (*entity.TokenPair, error) {
	now := s.now()

	accessToken, accessExp, err := s.sign(subjectID, role, entity.TokenKindAccess, now)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExp, err := s.sign(subjectID, role, entity.TokenKindRefresh, now)
	if err != nil {
		return nil, err
	}

	return &entity.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Verify checks the token and returns its claims. Failures are reported in the order
// malformed, bad signature, expired, wrong kind.
func (s *jwtService) Verify(tokenString string, expected entity.TokenKind) (*entity.TokenClaims, error) {
	if tokenString == "" {
		return nil, errors.Wrap(domainerrors.ErrTokenMalformed, "empty token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFor, opts...)
	if err != nil {
		return nil, s.mapParseError(err)
	}

	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrTokenMalformed, "invalid subject")
	}
	role := entity.Role(claims.Role)
	if !role.IsValid() {
		return nil, errors.Wrap(domainerrors.ErrTokenMalformed, "invalid role")
	}
	if entity.TokenKind(claims.Kind) != expected {
		return nil, errors.Wrapf(domainerrors.ErrTokenWrongKind, "expected %s token", expected)
	}

	result := &entity.TokenClaims{
		ID:        claims.ID,
		SubjectID: subjectID,
		Role:      role,
		Kind:      entity.TokenKind(claims.Kind),
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}

	return result, nil
}

// HashToken returns the hex encoded SHA-256 digest of the token.
func (s *jwtService) HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}

// AccessTTL returns the configured duration for access tokens.
func (s *jwtService) AccessTTL() time.Duration {
	return s.accessTTL
}

// RefreshTTL returns the configured duration for refresh tokens.
func (s *jwtService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func (s *jwtService) sign(subjectID uuid.UUID, role entity.Role, kind entity.TokenKind, now time.Time) (string, time.Time, error) {
	secret, ttl := s.accessSecret, s.accessTTL
	if kind == entity.TokenKindRefresh {
		secret, ttl = s.refreshSecret, s.refreshTTL
	}
	expiresAt := now.Add(ttl)

	claims := tokenClaims{
		Role: role.String(),
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "failed to sign token")
	}

	return signed, expiresAt, nil
}

// keyFor picks the secret from the unverified kind claim. The signature check that follows
// rejects any token whose kind was tampered with.
func (s *jwtService) keyFor(token *jwt.Token) (any, error) {
	claims, ok := token.Claims.(*tokenClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}

	switch entity.TokenKind(claims.Kind) {
	case entity.TokenKindAccess:
		return s.accessSecret, nil
	case entity.TokenKindRefresh:
		return s.refreshSecret, nil
	default:
		return nil, errors.Errorf("unknown token kind %q", claims.Kind)
	}
}

func (s *jwtService) mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return errors.Wrap(domainerrors.ErrTokenMalformed, err.Error())
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errors.Wrap(domainerrors.ErrTokenBadSignature, err.Error())
	case errors.Is(err, jwt.ErrTokenExpired):
		return errors.Wrap(domainerrors.ErrTokenExpired, err.Error())
	default:
		return errors.Wrap(domainerrors.ErrTokenMalformed, err.Error())
	}
}
