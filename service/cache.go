package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/janpow77/flowinvoice-sub001/model"
)

// DocumentCache keeps decoded documents in Storage for a short TTL. Writes
// through the review desk invalidate entries; they never patch them.
type DocumentCache struct {
	storage Storage
	ttl     time.Duration
}

func NewDocumentCache(storage Storage, ttl time.Duration) *DocumentCache {
	return &DocumentCache{storage: storage, ttl: ttl}
}

func documentKey(id string) string {
	return "doc:" + id
}

// Get returns the cached document, or nil on a miss
func (c *DocumentCache) Get(ctx context.Context, id string) (*model.Document, error) {
	raw, err := c.storage.Get(ctx, documentKey(id))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc model.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		// a corrupt entry is treated as a miss
		c.storage.Delete(ctx, documentKey(id))
		return nil, nil
	}
	return &doc, nil
}

func (c *DocumentCache) Set(ctx context.Context, doc *model.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return c.storage.Set(ctx, documentKey(doc.ID), string(data), c.ttl)
}

func (c *DocumentCache) Invalidate(ctx context.Context, id string) error {
	return c.storage.Delete(ctx, documentKey(id))
}
