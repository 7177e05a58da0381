package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediastudio/internal/domain"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "user/a.png", want: "user/a.png"},
		{in: "/user//a.png", want: "user/a.png"},
		{in: "./user/a.png", want: "user/a.png"},
		{in: `user\a.png`, want: "user/a.png"},
		{in: "user/../a.png", want: "a.png"},
		{in: "../etc/passwd", wantErr: true},
		{in: "..", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range tests {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Write(ctx, BucketUserUploads, "/u1/shoe.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "u1/shoe.png", key)

	ok, err := store.Exists(ctx, BucketUserUploads, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, BucketUserUploads, "u1/missing.png")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Exists(ctx, BucketUserUploads, "u1")
	require.NoError(t, err)
	assert.False(t, ok, "directories are not blobs")

	f, info, err := store.Open(ctx, BucketUserUploads, key)
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "png", string(body))
	assert.EqualValues(t, 3, info.Size())

	_, _, err = store.Open(ctx, BucketEditedImages, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Exists(ctx, "secrets", key)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func newTestSigner(t *testing.T, now time.Time) *Signer {
	t.Helper()
	s, err := NewSigner("secret", "http://localhost:8080/v1/storage/")
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s
}

func tokenOf(t *testing.T, raw string) (string, string) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Path, u.Query().Get("token")
}

func TestSignedURLRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := newTestSigner(t, now)

	raw, err := s.SignedURL(BucketEditedImages, "u1/my shot.png", 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "http://localhost:8080/v1/storage/edited-images/u1/my%20shot.png?token="))

	path, token := tokenOf(t, raw)
	assert.Equal(t, "/v1/storage/edited-images/u1/my shot.png", path)
	require.NoError(t, s.Verify(token, BucketEditedImages, "u1/my shot.png"))

	assert.ErrorIs(t, s.Verify(token, BucketEditedImages, "u1/other.png"), domain.ErrForbidden)
	assert.ErrorIs(t, s.Verify(token, BucketThumbnails, "u1/my shot.png"), domain.ErrForbidden)
	assert.ErrorIs(t, s.Verify(token+"x", BucketEditedImages, "u1/my shot.png"), domain.ErrForbidden)
	assert.ErrorIs(t, s.Verify("", BucketEditedImages, "u1/my shot.png"), domain.ErrForbidden)

	s.now = func() time.Time { return now.Add(31 * time.Minute) }
	assert.ErrorIs(t, s.Verify(token, BucketEditedImages, "u1/my shot.png"), domain.ErrForbidden)

	other, err := NewSigner("other-secret", "http://localhost:8080/v1/storage")
	require.NoError(t, err)
	other.now = func() time.Time { return now }
	assert.ErrorIs(t, other.Verify(token, BucketEditedImages, "u1/my shot.png"), domain.ErrForbidden)
}

func TestSignedURLEnforcesAllowListAndCaps(t *testing.T) {
	s := newTestSigner(t, time.Now())

	_, err := s.SignedURL("private", "a.png", time.Minute)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "bucket", verr.Field)

	_, err = s.SignedURL(BucketThumbnails, "a.png", 2*time.Hour)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "expiry", verr.Field)

	_, err = s.SignedURL(BucketThumbnails, "a.png", 0)
	require.ErrorAs(t, err, &verr)

	provider := s.WithMaxExpiry(ProviderExpiry)
	assert.Equal(t, ProviderExpiry, provider.MaxExpiry())
	assert.Equal(t, InternalExpiry, s.MaxExpiry())
	_, err = provider.SignedURL(BucketUserUploads, "a.png", 15*time.Minute)
	require.ErrorAs(t, err, &verr)
	_, err = provider.SignedURL(BucketUserUploads, "a.png", ProviderExpiry)
	require.NoError(t, err)

	assert.Equal(t, ProviderExpiry, provider.WithMaxExpiry(InternalExpiry).MaxExpiry(), "caps only go down")
}

func TestNewSignerRequiresSecret(t *testing.T) {
	_, err := NewSigner(" ", "http://x")
	assert.Error(t, err)
	_, err = NewSigner("s", "")
	assert.True(t, err != nil && !errors.Is(err, domain.ErrForbidden))
}
