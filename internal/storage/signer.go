package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"mediastudio/internal/domain"
)

// Expiry caps per call site.
const (
	// InternalExpiry bounds URLs handed to the studio UI.
	InternalExpiry = time.Hour
	// ProviderExpiry bounds URLs handed to external generation providers.
	ProviderExpiry = 10 * time.Minute
)

type urlClaims struct {
	Bucket string `json:"bkt"`
	Path   string `json:"path"`
	jwt.RegisteredClaims
}

// Signer issues and verifies signed read URLs for blobs.
type Signer struct {
	secret    []byte
	baseURL   string
	maxExpiry time.Duration
	now       func() time.Time
}

// NewSigner returns a signer whose URLs start with baseURL and are capped at
// InternalExpiry.
func NewSigner(secret, baseURL string) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("storage: signing secret is required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("storage: base url is required")
	}
	return &Signer{secret: []byte(secret), baseURL: baseURL, maxExpiry: InternalExpiry, now: time.Now}, nil
}

// WithMaxExpiry returns a copy of s that refuses expiries above max. A cap
// can only be lowered.
func (s *Signer) WithMaxExpiry(max time.Duration) *Signer {
	out := *s
	if max > 0 && max < out.maxExpiry {
		out.maxExpiry = max
	}
	return &out
}

// MaxExpiry returns the longest expiry the signer accepts.
func (s *Signer) MaxExpiry() time.Duration { return s.maxExpiry }

// SignedURL returns a URL granting read access to bucket/path for expiry.
func (s *Signer) SignedURL(bucket, path string, expiry time.Duration) (string, error) {
	if err := ValidateBucket(bucket); err != nil {
		return "", err
	}
	key, err := sanitizeKey(path)
	if err != nil {
		return "", err
	}
	if expiry <= 0 || expiry > s.maxExpiry {
		return "", &domain.ValidationError{
			Field:   "expiry",
			Message: fmt.Sprintf("must be between 1s and %s", s.maxExpiry),
		}
	}
	now := s.now()
	claims := urlClaims{
		Bucket: bucket,
		Path:   key,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("storage: sign url: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s?token=%s", s.baseURL, bucket, escapePath(key), url.QueryEscape(token)), nil
}

// Verify checks that token grants access to bucket/path. Any mismatch,
// tampering or expiry yields an error wrapping domain.ErrForbidden.
func (s *Signer) Verify(token, bucket, path string) error {
	if token == "" {
		return fmt.Errorf("storage: missing token: %w", domain.ErrForbidden)
	}
	key, err := sanitizeKey(path)
	if err != nil {
		return err
	}
	claims := &urlClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("storage: invalid token: %v: %w", err, domain.ErrForbidden)
	}
	if claims.Bucket != bucket || claims.Path != key {
		return fmt.Errorf("storage: token does not cover %s/%s: %w", bucket, key, domain.ErrForbidden)
	}
	return nil
}

func escapePath(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

var _ domain.URLSigner = (*Signer)(nil)
