package geoip

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNewResolverEmptyPath(t *testing.T) {
	r, err := NewResolver("  ")
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	if r != nil {
		t.Fatalf("NewResolver() = %v, want nil", r)
	}
	if _, err := r.CountryCode("203.0.113.1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("CountryCode() on nil resolver error = %v, want ErrUnavailable", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() on nil resolver error = %v", err)
	}
}

func TestNewResolverMissingDatabase(t *testing.T) {
	_, err := NewResolver(filepath.Join(t.TempDir(), "missing.mmdb"))
	if err == nil {
		t.Fatal("NewResolver() with missing file should fail")
	}
}
