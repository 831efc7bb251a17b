package models

import "time"

// Post is a single feed item embedded in the snapshot.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	MediaURL  string    `json:"mediaUrl,omitempty"`
	LikeCount int       `json:"likeCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Feed is the feed slice of the snapshot.
type Feed struct {
	Posts []Post `json:"posts"`
}

// Notifications carries the unread-notification badge count.
type Notifications struct {
	UnreadCount int `json:"unreadCount"`
}

// Messages is the messaging slice of the snapshot.
type Messages struct {
	Conversations []Conversation `json:"conversations"`
	UnreadCount   int            `json:"unreadCount"`
}

// Snapshot is the consolidated read of a user's world state, fetched in one
// request after authentication. At most one snapshot is current at a time;
// it is owned by the bootstrap service and handed out as value copies.
type Snapshot struct {
	User          *UserSummary  `json:"user"`
	Feed          Feed          `json:"feed"`
	Notifications Notifications `json:"notifications"`
	Messages      Messages      `json:"messages"`
	FetchedAt     time.Time     `json:"fetchedAt"`
}

// UnreadTotal is the combined badge count (notifications + messages).
func (s *Snapshot) UnreadTotal() int {
	return s.Notifications.UnreadCount + s.Messages.UnreadCount
}

// CacheEntry is the persisted form of a snapshot: the payload plus the epoch
// milliseconds at which it was written. Entries older than the cache TTL are
// treated as absent.
type CacheEntry struct {
	Payload   Snapshot `json:"data"`
	Timestamp int64    `json:"timestamp"`
}

// Age returns how long ago the entry was written, relative to now.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(e.Timestamp))
}

// LoadOptions control pagination sizes for the lists embedded in the
// bootstrap response.
type LoadOptions struct {
	FeedLimit          int
	FeedOffset         int
	ConversationsLimit int
	NotificationsLimit int
}

// Normalize fills unset (zero) limits with defaults.
func (o LoadOptions) Normalize() LoadOptions {
	if o.FeedLimit <= 0 {
		o.FeedLimit = 20
	}
	if o.ConversationsLimit <= 0 {
		o.ConversationsLimit = 15
	}
	if o.NotificationsLimit <= 0 {
		o.NotificationsLimit = 20
	}
	if o.FeedOffset < 0 {
		o.FeedOffset = 0
	}
	return o
}
