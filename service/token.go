package service

import (
	"context"
	"errors"
)

const upstreamTokenKey = "session:upstream_token"

// TokenStore holds the bearer token used against the FlowAudit API. There is
// one token per deployment: the gateway talks to FlowAudit as a single service
// account, so a PUT from any reviewer replaces it and a 401 clears it for all.
type TokenStore struct {
	storage Storage
}

func NewTokenStore(storage Storage) *TokenStore {
	return &TokenStore{storage: storage}
}

// Token returns the stored token, or "" when none is set
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	token, err := s.storage.Get(ctx, upstreamTokenKey)
	if errors.Is(err, ErrKeyNotFound) {
		return "", nil
	}
	return token, err
}

func (s *TokenStore) SetToken(ctx context.Context, token string) error {
	return s.storage.Set(ctx, upstreamTokenKey, token, 0)
}

func (s *TokenStore) Clear(ctx context.Context) error {
	return s.storage.Delete(ctx, upstreamTokenKey)
}
