// Package notify keeps a short per-user inbox of workflow notifications in
// Redis. Nothing is emailed or texted; the front-end polls the inbox.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Kinds of notifications.
const (
	KindDyeingRework = "DYEING_REWORK"
	KindLowStock     = "LOW_STOCK"
)

// BroadcastInventory is the inbox read by everyone who manages stock.
const BroadcastInventory = "inventory"

const maxPerInbox = 100

// Notification is one inbox entry.
type Notification struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	RefID     string    `json:"refId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists notifications as capped Redis lists, newest first.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore builds a Store. Inboxes expire ttl after their last write.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

// Add prepends n to its recipient's inbox.
func (s *Store) Add(ctx context.Context, n Notification) (Notification, error) {
	if n.Recipient == "" {
		return Notification{}, fmt.Errorf("notify: recipient required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(n)
	if err != nil {
		return Notification{}, err
	}
	key := inboxKey(n.Recipient)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, key, data)
		p.LTrim(ctx, key, 0, maxPerInbox-1)
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return Notification{}, fmt.Errorf("notify: store: %w", err)
	}
	return n, nil
}

// List returns up to limit notifications of the recipient, newest first.
func (s *Store) List(ctx context.Context, recipient string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > maxPerInbox {
		limit = maxPerInbox
	}
	raw, err := s.client.LRange(ctx, inboxKey(recipient), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("notify: list: %w", err)
	}
	out := make([]Notification, 0, len(raw))
	for _, r := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(r), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Clear empties the recipient's inbox.
func (s *Store) Clear(ctx context.Context, recipient string) error {
	return s.client.Del(ctx, inboxKey(recipient)).Err()
}

func inboxKey(recipient string) string {
	return "tailorflow:notifications:" + recipient
}
