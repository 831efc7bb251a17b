package services

import (
	"sort"
	"time"

	"github.com/spotterapp/spotter-go/internal/client/models"
)

// reconcileWindow is how far apart a pending message and its server-confirmed
// copy may be timestamped and still be treated as the same message.
const reconcileWindow = 60 * time.Second

// dedupeByID keeps the first occurrence of each identifier, preserving order.
func dedupeByID[T any](items []T, id func(T) string) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := id(it)
		if k == "" {
			out = append(out, it)
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

// mergePosts combines the held feed with a fresh page. Posts carry their own
// recency timestamp, so the merged list is ordered by CreatedAt descending;
// duplicates (the backend may repeat an entity across pages) collapse to one.
func mergePosts(held, fresh []models.Post) []models.Post {
	combined := make([]models.Post, 0, len(held)+len(fresh))
	combined = append(combined, fresh...)
	combined = append(combined, held...)
	merged := dedupeByID(combined, func(p models.Post) string { return p.ID })
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}

// mergeConversations combines held and fresh conversation lists. The fresh
// (server) copy of a conversation wins, except that a still-pending local
// message newer than the server's last message is kept until it reconciles.
func mergeConversations(held, fresh []models.Conversation) []models.Conversation {
	heldByID := make(map[string]models.Conversation, len(held))
	for _, c := range held {
		heldByID[c.ID] = c
	}

	out := make([]models.Conversation, 0, len(fresh)+len(held))
	seen := make(map[string]struct{}, len(fresh))
	for _, f := range fresh {
		if h, ok := heldByID[f.ID]; ok {
			f = reconcileConversation(h, f)
		}
		out = append(out, f)
		seen[f.ID] = struct{}{}
	}
	// Conversations only the client knows about (e.g. just created locally)
	// survive the merge.
	for _, h := range held {
		if _, ok := seen[h.ID]; !ok {
			out = append(out, h)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// reconcileConversation resolves a held conversation against its fresh server
// copy. A pending last message either reconciles with the server copy (match
// by sender+body within the window) and is replaced, or, when it is newer
// than everything the server knows, stays visible until the next merge.
func reconcileConversation(held, fresh models.Conversation) models.Conversation {
	hm := held.LastMessage
	if hm == nil || !hm.Pending {
		return fresh
	}
	if fresh.LastMessage != nil && hm.ReconcilesWith(fresh.LastMessage, reconcileWindow) {
		return fresh
	}
	if fresh.LastMessage == nil || hm.CreatedAt.After(fresh.LastMessage.CreatedAt) {
		fresh.LastMessage = hm
		if hm.CreatedAt.After(fresh.UpdatedAt) {
			fresh.UpdatedAt = hm.CreatedAt
		}
	}
	return fresh
}

// mergeSnapshots layers a fresh network snapshot over the held one. Counters
// and identity come from the fresh snapshot (the network is authoritative);
// embedded lists are merged with per-entity de-duplication.
func mergeSnapshots(held *models.Snapshot, fresh models.Snapshot) models.Snapshot {
	if held == nil {
		return fresh
	}
	fresh.Feed.Posts = mergePosts(held.Feed.Posts, fresh.Feed.Posts)
	fresh.Messages.Conversations = mergeConversations(held.Messages.Conversations, fresh.Messages.Conversations)
	return fresh
}
