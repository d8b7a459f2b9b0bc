package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/umatik/lottery-engine/internal/app/cache"
	"github.com/umatik/lottery-engine/internal/app/domain/notification"
	"github.com/umatik/lottery-engine/internal/app/storage"
	enginerr "github.com/umatik/lottery-engine/internal/errors"
)

// DefaultListLimit caps a notification page when the caller does not ask
// for a specific size.
const DefaultListLimit = 50

// Reader serves the notification read model. The unread counter is cached
// in redis and invalidated whenever a row for the recipient changes.
type Reader struct {
	store storage.NotificationStore
	cache *cache.Cache
}

// NewReader constructs a read model over the notification store. cache may
// be nil.
func NewReader(store storage.NotificationStore, c *cache.Cache) *Reader {
	return &Reader{store: store, cache: c}
}

// List returns a recipient's notifications, newest first.
func (r *Reader) List(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]notification.Notification, error) {
	if recipientID == "" {
		return nil, enginerr.Validation("recipient is required")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	items, err := r.store.ListNotifications(ctx, recipientID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// UnreadCount returns the recipient's unread total, serving from cache when
// a fresh value is present.
func (r *Reader) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	if recipientID == "" {
		return 0, enginerr.Validation("recipient is required")
	}
	key := unreadKey(recipientID)
	if n, err := r.cache.GetInt64(ctx, key); err == nil {
		return n, nil
	}
	n, err := r.store.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	r.cache.SetInt64(ctx, key, n)
	return n, nil
}

// MarkRead flags a notification as read and invalidates the recipient's
// cached unread count.
func (r *Reader) MarkRead(ctx context.Context, id string) (notification.Notification, error) {
	n, err := r.store.MarkNotificationRead(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return notification.Notification{}, enginerr.NotFound("notification", id)
		}
		return notification.Notification{}, fmt.Errorf("mark read: %w", err)
	}
	r.cache.Delete(ctx, unreadKey(n.RecipientID))
	return n, nil
}

// Invalidate drops the cached unread count for a recipient. The dispatcher
// calls it after writing new rows.
func (r *Reader) Invalidate(ctx context.Context, recipientIDs ...string) {
	keys := make([]string, len(recipientIDs))
	for i, id := range recipientIDs {
		keys[i] = unreadKey(id)
	}
	r.cache.Delete(ctx, keys...)
}

func unreadKey(recipientID string) string {
	return "notifications:unread:" + recipientID
}
