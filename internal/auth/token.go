package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"securityapi/internal/observability"
)

const (
	TokenIssuer = "security-lab-1"

	accessTokenType = "access"

	// MinSigningSecretBytes matches the HS256 key size.
	MinSigningSecretBytes = 32
)

func init() {
	// iat and exp are encoded with millisecond precision.
	jwt.TimePrecision = time.Millisecond
}

type accessClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

type tokenStatus int

const (
	tokenValid tokenStatus = iota
	tokenEmpty
	tokenMalformed
	tokenBadSignature
	tokenUnsupported
	tokenWrongIssuer
	tokenExpired
	tokenWrongType
)

func (s tokenStatus) String() string {
	switch s {
	case tokenValid:
		return "valid"
	case tokenEmpty:
		return "empty"
	case tokenMalformed:
		return "malformed"
	case tokenBadSignature:
		return "bad_signature"
	case tokenUnsupported:
		return "unsupported"
	case tokenWrongIssuer:
		return "wrong_issuer"
	case tokenExpired:
		return "expired"
	case tokenWrongType:
		return "wrong_type"
	default:
		return "unknown"
	}
}

// TokenService issues and verifies HS256 access tokens. It holds no mutable
// state and is safe for concurrent use. Every instance behind a load balancer
// must share the same secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	logger *observability.Logger
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, logger *observability.Logger) (*TokenService, error) {
	if len(secret) < MinSigningSecretBytes {
		return nil, ErrWeakSigningSecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *TokenService) Issue(subject string) (string, error) {
	now := s.now()
	claims := accessClaims{
		Type: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    TokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return encoded, nil
}

// Validate reports whether token is a well-signed, unexpired access token
// from this issuer. The reason for a rejection is logged, never returned.
func (s *TokenService) Validate(token string) bool {
	_, status := s.classify(token)
	observability.TokenValidations.WithLabelValues(status.String()).Inc()
	if status != tokenValid {
		s.logger.Warn("token_rejected", map[string]any{"reason": status.String()})
		return false
	}
	return true
}

// ExtractSubject verifies the token signature and returns its subject.
func (s *TokenService) ExtractSubject(token string) (string, error) {
	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (s *TokenService) classify(token string) (*accessClaims, tokenStatus) {
	if strings.TrimSpace(token) == "" {
		return nil, tokenEmpty
	}

	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, statusFromParseError(err)
	}
	if claims.Type != accessTokenType {
		return nil, tokenWrongType
	}
	return claims, tokenValid
}

// statusFromParseError maps a jwt parse error to a status. The signature is
// verified before claims, and issuer is reported ahead of expiry when both fail.
func statusFromParseError(err error) tokenStatus {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return tokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return tokenBadSignature
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return tokenUnsupported
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return tokenWrongIssuer
	case errors.Is(err, jwt.ErrTokenExpired):
		return tokenExpired
	default:
		return tokenMalformed
	}
}

func (s *TokenService) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return s.secret, nil
}
