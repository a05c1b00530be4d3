package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dockmon/internal/models"
	"dockmon/internal/utils"
)

const (
	// maxBuffered is how many notifications are retained per user.
	maxBuffered = 100
	// retention is how long an untouched buffer survives.
	retention = 7 * 24 * time.Hour
)

// Persistence is the bounded, TTL'd per-user notification buffer that
// backs offline and replay delivery. Semantics are at-least-once: a
// client may see an entry both live and from history, but entries are
// never lost inside the retention window.
type Persistence struct {
	store ListStore
	log   *utils.Logger
}

func NewPersistence(store ListStore, logger *utils.Logger) *Persistence {
	return &Persistence{store: store, log: logger}
}

// Append pushes a notification to the head of the user's buffer, trims
// to the newest maxBuffered entries and refreshes the TTL.
func (p *Persistence) Append(ctx context.Context, userID int64, n models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	key := bufferKey(userID)
	if err := p.store.Push(ctx, key, string(data)); err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	if err := p.store.Trim(ctx, key, maxBuffered); err != nil {
		p.log.Writef("Notification buffer trim failed (user %d): %v", userID, err)
	}
	if err := p.store.Expire(ctx, key, retention); err != nil {
		p.log.Writef("Notification buffer expire failed (user %d): %v", userID, err)
	}
	return nil
}

// History returns up to limit buffered notifications, newest first.
func (p *Persistence) History(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > maxBuffered {
		limit = maxBuffered
	}
	raw, err := p.store.Range(ctx, bufferKey(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("read notification buffer: %w", err)
	}
	out := make([]models.Notification, 0, len(raw))
	for _, entry := range raw {
		var n models.Notification
		if err := json.Unmarshal([]byte(entry), &n); err != nil {
			p.log.Writef("Notification buffer: skipping undecodable entry (user %d): %v", userID, err)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func bufferKey(userID int64) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}
