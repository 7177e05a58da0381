package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mediastudio/internal/infra"
	"mediastudio/internal/sqlinline"
)

const (
	ProviderReplicate = "replicate"
	ProviderRunway    = "runway"
)

// Store reads and writes provider API tokens kept in the integration_tokens table.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Resolve returns configured when set, otherwise the stored token for provider.
func (s *Store) Resolve(ctx context.Context, provider, configured string) (string, error) {
	if v := strings.TrimSpace(configured); v != "" {
		return v, nil
	}
	return s.Token(ctx, provider)
}

// Token returns the stored token for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetToken stores token for a known provider.
func (s *Store) SetToken(ctx context.Context, provider, token string, props map[string]any) error {
	switch provider {
	case ProviderReplicate, ProviderRunway:
	default:
		return fmt.Errorf("credentials: unknown provider %q", provider)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("credentials: %s token is required", provider)
	}
	if props == nil {
		props = map[string]any{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
