package common

import "time"

// Token store keys. One fixed key per credential type; the value under each
// key is the raw bearer token for that role.
const (
	TokenKeyUser     = "auth_token"
	TokenKeyGymAdmin = "gym_admin_token"
	TokenKeyStaff    = "staff_token"
)

// SnapshotCacheKey is the single key under which the consolidated bootstrap
// snapshot is cached between launches.
const SnapshotCacheKey = "bootstrap_snapshot"

// SnapshotCacheTTL is how long a cached snapshot is trusted. Entries older
// than this are treated as absent and deleted on read.
const SnapshotCacheTTL = 5 * time.Minute

// Realtime event names. These are part of the backend contract; the manager
// itself treats event names as opaque strings.
const (
	EventMessageNew          = "message:new"
	EventMessageSend         = "message:send"
	EventConversationUpdated = "conversation:updated"
	EventGymJoinRequest      = "gym:join-request"
	EventTyping              = "typing"
	EventChannelJoin         = "channel:join"
	EventChannelLeave        = "channel:leave"
)
